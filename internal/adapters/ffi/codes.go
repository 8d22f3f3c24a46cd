package ffi

import (
	"strconv"

	"securesigner/go-core/internal/signer"
)

// Code is the numeric result class returned across the C boundary.
type Code int32

const (
	CodeOK              Code = 0
	CodeMissingArgument Code = 1
	CodeInvalidEncoding Code = 2
	CodeDecode          Code = 3
	CodeCrypto          Code = 4
	CodeFormat          Code = 5
)

func (c Code) String() string {
	return strconv.Itoa(int(c))
}

// Result is a code plus either the success payload or a fixed error message.
type Result struct {
	Code    Code
	Payload string
}

func (r Result) OK() bool {
	return r.Code == CodeOK
}

func codeForKind(kind signer.Kind) Code {
	switch kind {
	case signer.KindMissingArgument:
		return CodeMissingArgument
	case signer.KindInvalidEncoding:
		return CodeInvalidEncoding
	case signer.KindDecode:
		return CodeDecode
	case signer.KindFormat:
		return CodeFormat
	default:
		return CodeCrypto
	}
}

func failure(err error) Result {
	return Result{Code: codeForKind(signer.ErrorKind(err)), Payload: err.Error()}
}
