// Package model defines the JSON boundary types and the coded error surface
// shared by the HTTP and gRPC APIs.
//
// Envelope bytes and signatures are unaffected by any projection here. These
// structs are the only types intended for direct JSON serialization by
// consumers.
package model
