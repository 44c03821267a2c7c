// Package coupling derives the update order of systems from their declared
// variable access.
//
// An edge writer -> reader exists for every variable a system reads in the
// same tick that another system writes. The resulting graph must be acyclic;
// its topological order, with ties broken by declaration order, is the order
// in which the simulation loop updates systems. Feedback reads observe the
// previous tick and never create edges, which is how intentional loops are
// expressed.
package coupling
