package benchmark

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/mzhnv/rollcall-go/pkg/crypto/adaptive"
)

// Benchmarks for the cryptographic primitives behind encrypted storage.

// BenchmarkAdaptiveCipherEncrypt benchmarks adaptive cipher encryption.
func BenchmarkAdaptiveCipherEncrypt(b *testing.B) {
	dataSizes := []int{64, 256, 1024, 4096, 16384}

	for _, size := range dataSizes {
		b.Run(sizeLabel(size), func(b *testing.B) {
			key := make([]byte, 32)
			rand.Read(key)

			cipher, err := adaptive.New(key)
			if err != nil {
				b.Fatalf("Failed to create cipher: %v", err)
			}

			data := make([]byte, size)
			rand.Read(data)

			b.ResetTimer()
			b.ReportAllocs()
			b.SetBytes(int64(size))

			for i := 0; i < b.N; i++ {
				if _, err := cipher.Encrypt(data, nil); err != nil {
					b.Fatalf("Encrypt failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkAdaptiveCipherDecrypt benchmarks adaptive cipher decryption.
func BenchmarkAdaptiveCipherDecrypt(b *testing.B) {
	dataSizes := []int{64, 256, 1024, 4096, 16384}

	for _, size := range dataSizes {
		b.Run(sizeLabel(size), func(b *testing.B) {
			key := make([]byte, 32)
			rand.Read(key)

			cipher, err := adaptive.New(key)
			if err != nil {
				b.Fatalf("Failed to create cipher: %v", err)
			}

			data := make([]byte, size)
			rand.Read(data)

			encrypted, err := cipher.Encrypt(data, nil)
			if err != nil {
				b.Fatalf("Encrypt failed: %v", err)
			}

			b.ResetTimer()
			b.ReportAllocs()
			b.SetBytes(int64(size))

			for i := 0; i < b.N; i++ {
				if _, err := cipher.Decrypt(encrypted, nil); err != nil {
					b.Fatalf("Decrypt failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkCipherAlgorithms compares the two supported algorithms at a
// fixed payload size.
func BenchmarkCipherAlgorithms(b *testing.B) {
	key := make([]byte, 32)
	rand.Read(key)

	data := make([]byte, 1024)
	rand.Read(data)

	for _, cipherType := range []adaptive.CipherType{adaptive.CipherAESGCM, adaptive.CipherChaCha20} {
		b.Run(string(cipherType), func(b *testing.B) {
			cipher, err := adaptive.NewWithType(key, cipherType)
			if err != nil {
				b.Fatalf("Failed to create cipher: %v", err)
			}

			b.ResetTimer()
			b.ReportAllocs()
			b.SetBytes(1024)

			for i := 0; i < b.N; i++ {
				if _, err := cipher.Encrypt(data, nil); err != nil {
					b.Fatalf("Encrypt failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkAdaptiveCipherRoundTrip benchmarks encrypt + decrypt.
func BenchmarkAdaptiveCipherRoundTrip(b *testing.B) {
	key := make([]byte, 32)
	rand.Read(key)

	cipher, err := adaptive.New(key)
	if err != nil {
		b.Fatalf("Failed to create cipher: %v", err)
	}

	data := make([]byte, 1024)
	rand.Read(data)

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(1024)

	for i := 0; i < b.N; i++ {
		encrypted, err := cipher.Encrypt(data, nil)
		if err != nil {
			b.Fatalf("Encrypt failed: %v", err)
		}
		if _, err := cipher.Decrypt(encrypted, nil); err != nil {
			b.Fatalf("Decrypt failed: %v", err)
		}
	}
}

// BenchmarkAdaptiveCipherParallel benchmarks parallel round trips.
func BenchmarkAdaptiveCipherParallel(b *testing.B) {
	key := make([]byte, 32)
	rand.Read(key)

	cipher, err := adaptive.New(key)
	if err != nil {
		b.Fatalf("Failed to create cipher: %v", err)
	}

	data := make([]byte, 1024)
	rand.Read(data)

	b.ResetTimer()
	b.SetBytes(1024)
	b.RunParallel(func(pb *testing.PB) {
		localData := make([]byte, 1024)
		copy(localData, data)

		for pb.Next() {
			encrypted, err := cipher.Encrypt(localData, nil)
			if err != nil {
				b.Fatalf("Encrypt failed: %v", err)
			}
			if _, err := cipher.Decrypt(encrypted, nil); err != nil {
				b.Fatalf("Decrypt failed: %v", err)
			}
		}
	})
}

// BenchmarkCipherSetup benchmarks cipher construction from a raw key.
func BenchmarkCipherSetup(b *testing.B) {
	key := make([]byte, 32)
	rand.Read(key)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := adaptive.New(key); err != nil {
			b.Fatalf("New failed: %v", err)
		}
	}
}

// BenchmarkRandomGeneration benchmarks cryptographic random generation.
func BenchmarkRandomGeneration(b *testing.B) {
	sizes := []int{16, 32, 64, 128, 256}

	for _, size := range sizes {
		b.Run(sizeLabel(size), func(b *testing.B) {
			buf := make([]byte, size)

			b.ResetTimer()
			b.ReportAllocs()
			b.SetBytes(int64(size))

			for i := 0; i < b.N; i++ {
				if _, err := rand.Read(buf); err != nil {
					b.Fatalf("rand.Read failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkLargeDataEncryption benchmarks encryption of large blocks,
// the shape a full snapshot produces.
func BenchmarkLargeDataEncryption(b *testing.B) {
	sizes := []int{64 * 1024, 256 * 1024, 1024 * 1024}

	for _, size := range sizes {
		b.Run(sizeLabel(size), func(b *testing.B) {
			key := make([]byte, 32)
			rand.Read(key)

			cipher, err := adaptive.New(key)
			if err != nil {
				b.Fatalf("Failed to create cipher: %v", err)
			}

			data := make([]byte, size)
			rand.Read(data)

			b.ResetTimer()
			b.SetBytes(int64(size))
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := cipher.Encrypt(data, nil); err != nil {
					b.Fatalf("Encrypt failed: %v", err)
				}
			}
		})
	}
}

// sizeLabel returns a human-readable size label.
func sizeLabel(size int) string {
	switch {
	case size >= 1024*1024:
		return fmt.Sprintf("%dMB", size/(1024*1024))
	case size >= 1024:
		return fmt.Sprintf("%dKB", size/1024)
	default:
		return fmt.Sprintf("%dB", size)
	}
}
