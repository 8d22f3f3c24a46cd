// Command securesigner builds the signing core as a C shared library:
//
//	go build -buildmode=c-shared -o libsecuresigner.so ./cmd/securesigner
//
// Input strings are read in place and never modified. Every char* in a
// returned SignerResult belongs to the caller and must be released with
// signer_free_result or signer_free_string.
package main

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
	int32_t error_code;
	char *result;
} SignerResult;
*/
import "C"

import (
	"sync"
	"unsafe"

	"securesigner/go-core/internal/adapters/ffi"
)

var versionCString = sync.OnceValue(func() *C.char {
	return C.CString(ffi.Version())
})

// view aliases a NUL-terminated C string as a byte slice without copying.
// NULL maps to nil; an empty string maps to a non-nil empty slice.
func view(s *C.char) []byte {
	if s == nil {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(s)), int(C.strlen(s)))
}

func toC(res ffi.Result) C.SignerResult {
	return C.SignerResult{
		error_code: C.int32_t(res.Code),
		result:     C.CString(res.Payload),
	}
}

//export signer_create_container
func signer_create_container(privateKeyB58, passphrase *C.char) C.SignerResult {
	return toC(ffi.Default().CreateContainer(view(privateKeyB58), view(passphrase)))
}

//export signer_sign_transaction
func signer_sign_transaction(containerJSON, passphrase, transactionB64 *C.char) C.SignerResult {
	return toC(ffi.Default().SignViaContainer(view(containerJSON), view(passphrase), view(transactionB64)))
}

//export signer_sign_direct
func signer_sign_direct(privateKeyB58, messageB64 *C.char) C.SignerResult {
	return toC(ffi.Default().SignDirect(view(privateKeyB58), view(messageB64)))
}

//export signer_free_string
func signer_free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

//export signer_free_result
func signer_free_result(res C.SignerResult) {
	signer_free_string(res.result)
}

// signer_version returns a static string. Callers must not free it.
//
//export signer_version
func signer_version() *C.char {
	return versionCString()
}

//export signer_check_mlock_support
func signer_check_mlock_support() C.int32_t {
	if ffi.CheckMemoryLockSupport() {
		return 1
	}
	return 0
}

//export signer_metrics
func signer_metrics() C.SignerResult {
	return toC(ffi.Default().MetricsText())
}

func main() {}
