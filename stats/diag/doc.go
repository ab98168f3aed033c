// Package diag provides residual diagnostics for forward-recursion output.
//
// The per-step log scale factors of a forward pass, ln P(xₜ | x₁..xₜ₋₁),
// behave like independent draws when the model fits. Serial correlation
// left in them points at misfit, typically too few states or a transition
// matrix that is too sticky.
//
//	tr, _ := hmm.Forward(n, N, delta, gamma, allprobs)
//	acf, _ := diag.LogScaleACF(tr, 20)
//	q, p, _ := diag.LjungBox(tr.LogScales, 20)
package diag
