// Package securebuffer holds sensitive bytes (private keys, passphrases,
// derived keys) in guarded memory that is zeroed before release.
//
// Where the platform allows it, memory comes from an anonymous mmap outside
// the Go heap, is locked into RAM with mlock and is excluded from core dumps.
// Elsewhere buffers live on the heap and are only zeroized; this is a
// degraded mode, not a failure. The choice is a [Strategy] picked once by
// [Select] from the result of [CheckMemoryLockSupport].
//
// A [Buffer] is owned by exactly one operation and must be destroyed by it:
//
//	buf, err := securebuffer.FromBytes(strategy, raw)
//	if err != nil {
//		return err
//	}
//	defer buf.Destroy()
//
// Any access after Destroy panics. Destroy is idempotent.
package securebuffer
