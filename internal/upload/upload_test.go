package upload

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mp4-creator/internal/metrics"
	"mp4-creator/internal/pipeline"
)

type formPart struct {
	field       string
	filename    string
	contentType string
	body        string
}

func video(name, body string) formPart {
	return formPart{field: FieldVideos, filename: name, body: body}
}

func field(name, value string) formPart {
	return formPart{field: name, body: value}
}

func newUploadRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, p := range parts {
		h := textproto.MIMEHeader{}
		if p.filename != "" {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
			ct := p.contentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			h.Set("Content-Type", ct)
		} else {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, p.field))
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/merge", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func receive(t *testing.T, r *Reader, req *http.Request) (pipeline.Submission, string, error) {
	t.Helper()
	dir := t.TempDir()
	sub, err := r.Receive(httptest.NewRecorder(), req)(context.Background(), dir)
	return sub, dir, err
}

func requireFailure(t *testing.T, err error, kind pipeline.Kind) *pipeline.Failure {
	t.Helper()
	var f *pipeline.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, kind, f.Kind, "failure: %v", f)
	return f
}

var storedName = regexp.MustCompile(`^upload_[0-9a-f-]{36}\.(mp4|mov)$`)

func TestReceiveStoresVideosUnderServerNames(t *testing.T) {
	req := newUploadRequest(t,
		video("a.mp4", "AAA"),
		formPart{field: FieldVideos, filename: "b.mov", contentType: "video/quicktime", body: "BB"},
		field(FieldOrder, `["b.mov","a.mp4"]`),
	)

	sub, dir, err := receive(t, NewReader(DefaultLimits()), req)
	require.NoError(t, err)

	require.Len(t, sub.Inputs, 2)
	assert.Equal(t, []string{"b.mov", "a.mp4"}, sub.Order)

	a, b := sub.Inputs[0], sub.Inputs[1]
	assert.Equal(t, "a.mp4", a.DeclaredName)
	assert.Equal(t, int64(3), a.Size)
	assert.Equal(t, "video/mp4", a.MediaType)
	assert.Equal(t, "video/quicktime", b.MediaType)

	for _, in := range sub.Inputs {
		assert.Equal(t, dir, filepath.Dir(in.StoredPath))
		assert.Regexp(t, storedName, filepath.Base(in.StoredPath))
	}

	data, err := os.ReadFile(a.StoredPath)
	require.NoError(t, err)
	assert.Equal(t, "AAA", string(data))
}

func TestReceiveRepeatedOrderFields(t *testing.T) {
	req := newUploadRequest(t,
		video("a.mp4", "A"), video("b.mp4", "B"),
		field(FieldOrder, "b.mp4"), field(FieldOrder, "a.mp4"),
	)

	sub, _, err := receive(t, NewReader(DefaultLimits()), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.mp4", "a.mp4"}, sub.Order)
}

func TestReceiveWithoutOrder(t *testing.T) {
	req := newUploadRequest(t, video("a.mp4", "A"), video("b.mp4", "B"), field("note", "ignored"))

	sub, _, err := receive(t, NewReader(DefaultLimits()), req)
	require.NoError(t, err)
	assert.Empty(t, sub.Order)
	assert.Len(t, sub.Inputs, 2)
}

func TestReceiveClientPathIsNotTrusted(t *testing.T) {
	req := newUploadRequest(t, video("../../escape.mp4", "X"), video("b.mp4", "B"))

	sub, dir, err := receive(t, NewReader(DefaultLimits()), req)
	require.NoError(t, err)

	assert.Equal(t, "escape.mp4", sub.Inputs[0].DeclaredName)
	assert.Equal(t, dir, filepath.Dir(sub.Inputs[0].StoredPath))
	_, statErr := os.Stat(filepath.Join(filepath.Dir(filepath.Dir(dir)), "escape.mp4"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReceiveRejectsUnsupportedExtension(t *testing.T) {
	before := testutil.ToFloat64(metrics.UploadRejectionsTotal.WithLabelValues("unsupported_type"))

	req := newUploadRequest(t, video("a.mp4", "A"), video("notes.txt", "hello"))
	_, _, err := receive(t, NewReader(DefaultLimits()), req)

	f := requireFailure(t, err, pipeline.KindValidation)
	assert.Contains(t, f.Message, "notes.txt")
	require.Len(t, f.Hints, 1)
	assert.Contains(t, f.Hints[0], ".mp4")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.UploadRejectionsTotal.WithLabelValues("unsupported_type")))
}

func TestReceiveRejectsNonVideoContentType(t *testing.T) {
	req := newUploadRequest(t, formPart{field: FieldVideos, filename: "a.mp4", contentType: "image/png", body: "PNG"})
	_, _, err := receive(t, NewReader(DefaultLimits()), req)
	requireFailure(t, err, pipeline.KindValidation)
}

func TestReceiveTooManyFiles(t *testing.T) {
	req := newUploadRequest(t, video("a.mp4", "A"), video("b.mp4", "B"), video("c.mp4", "C"))

	_, _, err := receive(t, NewReader(Limits{MaxFiles: 2}), req)

	f := requireFailure(t, err, pipeline.KindValidation)
	assert.Contains(t, f.Message, "at most 2")
}

func TestReceiveFileTooLarge(t *testing.T) {
	req := newUploadRequest(t, video("a.mp4", "small"), video("b.mp4", strings.Repeat("x", 2000)))

	_, _, err := receive(t, NewReader(Limits{MaxFileSize: 1000}), req)

	f := requireFailure(t, err, pipeline.KindPayloadTooLarge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, f.Status())
	assert.Contains(t, f.Message, "b.mp4")
	assert.Contains(t, f.Message, "1.0 kB")
}

func TestReceiveRequestTooLargeByContentLength(t *testing.T) {
	req := newUploadRequest(t, video("a.mp4", strings.Repeat("x", 4096)))

	_, _, err := receive(t, NewReader(Limits{MaxRequestSize: 1024}), req)

	f := requireFailure(t, err, pipeline.KindPayloadTooLarge)
	assert.Contains(t, f.Message, "request limit")
}

func TestReceiveRequestTooLargeWhileStreaming(t *testing.T) {
	req := newUploadRequest(t, video("a.mp4", strings.Repeat("x", 4096)), video("b.mp4", "B"))
	req.ContentLength = -1

	_, _, err := receive(t, NewReader(Limits{MaxRequestSize: 1024}), req)

	requireFailure(t, err, pipeline.KindPayloadTooLarge)
}

func TestReceiveNotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/merge", strings.NewReader(`{"videos":[]}`))
	req.Header.Set("Content-Type", "application/json")

	_, _, err := receive(t, NewReader(DefaultLimits()), req)

	requireFailure(t, err, pipeline.KindValidation)
}

func TestReceiveVideoFieldWithoutFile(t *testing.T) {
	req := newUploadRequest(t, field(FieldVideos, "not a file"))

	_, _, err := receive(t, NewReader(DefaultLimits()), req)

	requireFailure(t, err, pipeline.KindValidation)
}

func TestReceiveInvalidJSONOrder(t *testing.T) {
	req := newUploadRequest(t, video("a.mp4", "A"), video("b.mp4", "B"), field(FieldOrder, `["a.mp4",`))

	_, _, err := receive(t, NewReader(DefaultLimits()), req)

	f := requireFailure(t, err, pipeline.KindValidation)
	assert.Contains(t, f.Message, "JSON array")
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		want   []string
	}{
		{"none", nil, nil},
		{"json array", []string{` ["b.mp4", "a.mp4"] `}, []string{"b.mp4", "a.mp4"}},
		{"single name", []string{"a.mp4"}, []string{"a.mp4"}},
		{"repeated", []string{"b.mp4", "a.mp4"}, []string{"b.mp4", "a.mp4"}},
		{"blank field", []string{""}, nil},
		{"empty json array", []string{"[]"}, []string{}},
		{"name with spaces", []string{"my clip.mp4", "b.mp4"}, []string{"my clip.mp4", "b.mp4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrder(tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewReaderDefaults(t *testing.T) {
	r := NewReader(Limits{MaxFiles: 5})

	assert.Equal(t, 5, r.Limits().MaxFiles)
	assert.Equal(t, DefaultLimits().MaxFileSize, r.Limits().MaxFileSize)
	assert.Equal(t, DefaultLimits().MaxRequestSize, r.Limits().MaxRequestSize)
}
