// Package security decides whether a classified intent may run.
//
// It owns the allowlist policy loaded at startup and the pure authorization
// function that maps (intent, policy) to a decision:
//
//   - Allowed: run immediately
//   - RequiresConfirmation: ask the operator through the confirmation gate
//   - Denied: refuse without asking
//
// Nothing here touches the process table, the file system (beyond reading
// the policy file) or the audit log; the executor in package core does.
package security
