// Package policy holds the department to permission table that drives every
// authorization decision in the CRM.
//
// The table is plain data. Callers depend on the Policy interface so tests
// and alternate deployments can supply a different table without touching
// package state.
package policy
