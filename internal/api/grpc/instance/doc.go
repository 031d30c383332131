// Package instance implements the local gRPC surface of the single-instance
// endpoint.
//
// The service has one unary method, Show, that asks the running launcher to
// come to the front. Messages are protobuf well-known types, so the service
// descriptor is declared by hand instead of generated.
package instance
