// Command hashtoken produces the bcrypt hash expected in API_TOKEN_HASH.
//
// Usage:
//
//	hashtoken <command>
//
// Commands:
//
//	hash           Prompt for a token twice without echo and print its hash.
//	verify <hash>  Prompt for a token and report whether it matches hash.
//
// Clients send the plain token in an "Authorization: Bearer" header or in
// X-API-Token; the server only ever stores the hash.
package main
