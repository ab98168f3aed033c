// Package hmm computes hidden Markov model likelihoods with the scaled
// forward algorithm.
//
// The caller supplies an initial distribution δ (length N), a transition
// matrix Γ (N×N) and an emission matrix P (n×N) whose row t holds the
// probability of observation t under each hidden state. The recursion is
//
//	v₁ = δ ⊙ P₁
//	vₜ = (vₜ₋₁ Γ) ⊙ Pₜ,  t = 2..n
//
// and after every step v is divided by its sum s, with ln s added to the
// log-likelihood. Without the rescale the forward values underflow after a
// few hundred steps.
//
// [ForwardLogLikelihood] returns only the log-likelihood. [Forward] also
// returns the per-step contributions and the final filtered distribution.
// [Filter] runs the same recursion one observation at a time.
// [EmissionMatrix] builds P from per-state Gaussian densities.
package hmm
