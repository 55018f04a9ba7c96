package vm

import "github.com/mxphp/corevm/diag"

// recoverableAt builds a Recoverable diagnostic tagged with the byte
// pc a handler was executing at, the common shape every opcode that
// reports one of §7's non-fatal conditions needs.
func recoverableAt(pc int, kind diag.RecoverableKind, message string) diag.Recoverable {
	return diag.Recoverable{Kind: kind, Message: message, PC: pc}
}
