package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "hello world", NormalizeText("hello world"))
	assert.Equal(t, "hello world", NormalizeText("  hello \t\n world  "))
	assert.Equal(t, "", NormalizeText("   \n\t "))
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("T1", "prompts/default.txt", "hello world", "m-1", 256)
	b := Fingerprint("T1", "prompts/default.txt", "hello world", "m-1", 256)
	assert.Equal(t, a, b)
}

func TestFingerprintNormalizationEquivalence(t *testing.T) {
	a := Fingerprint("T1", "prompts/default.txt", "hello world", "m-1", 256)
	b := Fingerprint("T1", "prompts/default.txt", "  hello\n\tworld ", "m-1", 256)
	assert.Equal(t, a, b)
}

func TestFingerprintTenantIsolation(t *testing.T) {
	a := Fingerprint("T1", "prompts/default.txt", "hello world", "m-1", 256)
	b := Fingerprint("T2", "prompts/default.txt", "hello world", "m-1", 256)
	assert.NotEqual(t, a, b)
}

func TestFingerprintVariesByEveryComponent(t *testing.T) {
	base := Fingerprint("T1", "prompts/default.txt", "hello world", "m-1", 256)
	assert.NotEqual(t, base, Fingerprint("T1", "prompts/other.txt", "hello world", "m-1", 256))
	assert.NotEqual(t, base, Fingerprint("T1", "prompts/default.txt", "goodbye world", "m-1", 256))
	assert.NotEqual(t, base, Fingerprint("T1", "prompts/default.txt", "hello world", "m-2", 256))
	assert.NotEqual(t, base, Fingerprint("T1", "prompts/default.txt", "hello world", "m-1", 512))
}

func TestFingerprintNoFieldBleed(t *testing.T) {
	// joining fields must not let adjacent values collide
	a := Fingerprint("T1", "ab", "c", "m", 1)
	b := Fingerprint("T1", "a", "bc", "m", 1)
	assert.NotEqual(t, a, b)
}
