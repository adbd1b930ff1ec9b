package cipher

import (
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/kenneth/creditstream/config"
)

// HasAESHardwareSupport reports whether the running CPU supports AES
// hardware acceleration (AES-NI on amd64/386, the ARMv8 Cryptography
// Extensions on arm64, or the equivalent on s390x). crypto/aes uses this
// transparently when present; NewDefaultBlockCipher does not need to
// select a different implementation, but callers use this to decide
// whether to report acceleration as active in diagnostics and metrics.
func HasAESHardwareSupport() bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return cpu.X86.HasAES
	case "arm64":
		return cpu.ARM64.HasAES
	case "s390x":
		return cpu.S390X.HasAES
	default:
		return false
	}
}

// IsHardwareAccelerationEnabled reports whether hardware acceleration is
// both supported by the CPU and not disabled in cfg.
func IsHardwareAccelerationEnabled(cfg config.HardwareConfig) bool {
	if !HasAESHardwareSupport() {
		return false
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		return cfg.EnableAESNI
	case "arm64":
		return cfg.EnableARMv8AES
	default:
		return true
	}
}

// HardwareInfo returns diagnostic information about AES hardware
// acceleration on the current host as a map of named fields. cfg may be
// nil, in which case the per-config fields are omitted.
func HardwareInfo(cfg *config.HardwareConfig) map[string]interface{} {
	info := map[string]interface{}{
		"aes_hardware_support": HasAESHardwareSupport(),
		"architecture":         runtime.GOARCH,
		"goos":                 runtime.GOOS,
		"go_version":           runtime.Version(),
	}

	if cfg != nil {
		info["aes_ni_enabled"] = cfg.EnableAESNI
		info["armv8_aes_enabled"] = cfg.EnableARMv8AES
		info["hardware_acceleration_active"] = IsHardwareAccelerationEnabled(*cfg)
	}

	return info
}
