package assert

import "github.com/heretere/hac/oerror"

// IsTrue panics with the formatted message if ok is false. It is reserved for programming errors that must
// never be recovered from as part of normal operation.
func IsTrue(ok bool, message string, args ...interface{}) {
	if !ok {
		panic(oerror.New(message, args...))
	}
}
