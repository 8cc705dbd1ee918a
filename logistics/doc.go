// Package logistics holds the order status lattice and the deterministic
// transition functions for the logistics peer agents (farm, shipper,
// accountant). Every function here is total: no input produces an error or
// a panic, because peers are invoked concurrently and out of order and must
// never crash the orchestrator.
package logistics
