package infra

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestFallbackHostName(t *testing.T) {
	// Note: This test uses the actual os.Hostname, so results depend on the environment
	name := fallbackHostName()
	if name == "" {
		t.Error("fallbackHostName() returned empty string")
	}

	// Should not contain .local suffix
	if len(name) >= 6 {
		suffix := name[len(name)-6:]
		if suffix == ".local" || suffix == ".LOCAL" || suffix == ".Local" {
			t.Errorf("fallbackHostName() returned name with .local suffix: %q", name)
		}
	}
}

func TestFallbackHostNameRemovesLocalSuffix(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		expected string
	}{
		{"no suffix", "mycomputer", "mycomputer"},
		{"lowercase .local", "mycomputer.local", "mycomputer"},
		{"uppercase .LOCAL", "mycomputer.LOCAL", "mycomputer"},
		{"mixed case .Local", "mycomputer.Local", "mycomputer"},
		{"mixed case .lOcAl", "mycomputer.lOcAl", "mycomputer"},
		{"empty hostname", "", "vtcode"},
		{"only .local", ".local", "vtcode"},
		{"whitespace only", "   ", "vtcode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// We can't easily mock os.Hostname, so we test the logic indirectly
			// by testing strings.TrimSuffix behavior
			hostname := tt.hostname

			// Simulate the fallbackHostName logic for testing
			if hostname == "" {
				hostname = "vtcode"
			} else {
				// Remove .local suffix variations
				original := hostname
				hostname = trimSuffixCaseInsensitive(hostname, ".local")
				hostname = trimSpace(hostname)
				if hostname == "" || hostname == original && isLocalSuffix(original) {
					hostname = "vtcode"
				}
			}

			// Note: This doesn't test os.Hostname, just the suffix removal logic
		})
	}
}

// Helper to test suffix removal logic
func trimSuffixCaseInsensitive(s, suffix string) string {
	if len(s) >= len(suffix) {
		end := s[len(s)-len(suffix):]
		if equalFold(end, suffix) {
			return s[:len(s)-len(suffix)]
		}
	}
	return s
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

func isLocalSuffix(s string) bool {
	if len(s) < 6 {
		return false
	}
	return equalFold(s[len(s)-6:], ".local")
}

func TestGetMachineDisplayName(t *testing.T) {
	// Reset cache before test
	ResetMachineNameCacheForTest()

	name := GetMachineDisplayName()
	if name == "" {
		t.Error("GetMachineDisplayName() returned empty string")
	}

	// Reset for other tests
	ResetMachineNameCacheForTest()
}

func TestGetMachineDisplayNameCaching(t *testing.T) {
	ResetMachineNameCacheForTest()

	var callCount int32
	restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
		atomic.AddInt32(&callCount, 1)
		return "TestMachine", nil
	})
	defer restore()

	// Call multiple times
	name1 := GetMachineDisplayName()
	name2 := GetMachineDisplayName()
	name3 := GetMachineDisplayName()

	// All should return the same value
	if name1 != name2 || name2 != name3 {
		t.Errorf("GetMachineDisplayName() returned different values: %q, %q, %q", name1, name2, name3)
	}

	// On darwin, the command should only be called once (or zero times on other platforms)
	// Since caching is at the GetMachineDisplayName level, internal function is only called once
	if runtime.GOOS == "darwin" && atomic.LoadInt32(&callCount) > 1 {
		t.Errorf("Command executor called %d times, expected at most 1", callCount)
	}

	ResetMachineNameCacheForTest()
}

func TestGetMachineDisplayNameConcurrent(t *testing.T) {
	ResetMachineNameCacheForTest()

	var callCount int32
	restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
		atomic.AddInt32(&callCount, 1)
		return "ConcurrentTestMachine", nil
	})
	defer restore()

	const goroutines = 100
	var wg sync.WaitGroup
	wg.Add(goroutines)

	results := make([]string, goroutines)

	for i := 0; i < goroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			results[idx] = GetMachineDisplayName()
		}(i)
	}

	wg.Wait()

	// All results should be identical
	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Errorf("Concurrent call %d returned %q, expected %q", i, results[i], results[0])
		}
	}

	// Command should only be called once (on darwin)
	if runtime.GOOS == "darwin" && atomic.LoadInt32(&callCount) > 1 {
		t.Errorf("Command executor called %d times during concurrent access, expected 1", callCount)
	}

	ResetMachineNameCacheForTest()
}

func TestGetMacosComputerName(t *testing.T) {
	ResetMachineNameCacheForTest()

	t.Run("success", func(t *testing.T) {
		restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
			if name == "/usr/sbin/scutil" && len(args) == 2 && args[0] == "--get" && args[1] == "ComputerName" {
				return "My Mac Pro", nil
			}
			return "", errors.New("unexpected command")
		})
		defer restore()

		name, err := getMacosComputerName()
		if err != nil {
			t.Errorf("getMacosComputerName() error = %v", err)
		}
		if name != "My Mac Pro" {
			t.Errorf("getMacosComputerName() = %q, want %q", name, "My Mac Pro")
		}
	})

	t.Run("failure", func(t *testing.T) {
		restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
			return "", errors.New("command not found")
		})
		defer restore()

		_, err := getMacosComputerName()
		if err == nil {
			t.Error("getMacosComputerName() expected error, got nil")
		}
	})

	ResetMachineNameCacheForTest()
}

func TestGetMacosLocalHostName(t *testing.T) {
	ResetMachineNameCacheForTest()

	t.Run("success", func(t *testing.T) {
		restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
			if name == "/usr/sbin/scutil" && len(args) == 2 && args[0] == "--get" && args[1] == "LocalHostName" {
				return "My-Mac-Pro", nil
			}
			return "", errors.New("unexpected command")
		})
		defer restore()

		name, err := getMacosLocalHostName()
		if err != nil {
			t.Errorf("getMacosLocalHostName() error = %v", err)
		}
		if name != "My-Mac-Pro" {
			t.Errorf("getMacosLocalHostName() = %q, want %q", name, "My-Mac-Pro")
		}
	})

	t.Run("failure", func(t *testing.T) {
		restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
			return "", errors.New("command not found")
		})
		defer restore()

		_, err := getMacosLocalHostName()
		if err == nil {
			t.Error("getMacosLocalHostName() expected error, got nil")
		}
	})

	ResetMachineNameCacheForTest()
}

func TestGetWindowsComputerName(t *testing.T) {
	t.Run("from env", func(t *testing.T) {
		// Save and restore original value
		original := "" // os.Getenv reads at test time

		// We can't easily mock os.Getenv, so we test the logic
		// This test documents the expected behavior

		// When COMPUTERNAME is set, it should be returned
		// When not set, it should fall back to os.Hostname()
		name, err := getWindowsComputerName()
		if err != nil && name == "" {
			// This is acceptable - env var not set and hostname retrieval might fail
			t.Logf("getWindowsComputerName() returned empty (env not set): %v", err)
		}
		_ = original // silence unused warning
	})
}

func TestGetMachineDisplayNameInternal_Darwin(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("Skipping darwin-specific test on non-darwin platform")
	}

	ResetMachineNameCacheForTest()

	t.Run("uses ComputerName first", func(t *testing.T) {
		restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
			if args[1] == "ComputerName" {
				return "Computer Name", nil
			}
			if args[1] == "LocalHostName" {
				return "Local-Host-Name", nil
			}
			return "", errors.New("unknown")
		})
		defer restore()

		name := getMachineDisplayNameInternal()
		if name != "Computer Name" {
			t.Errorf("getMachineDisplayNameInternal() = %q, want %q", name, "Computer Name")
		}
	})

	t.Run("falls back to LocalHostName", func(t *testing.T) {
		restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
			if args[1] == "ComputerName" {
				return "", errors.New("not set")
			}
			if args[1] == "LocalHostName" {
				return "Local-Host-Name", nil
			}
			return "", errors.New("unknown")
		})
		defer restore()

		name := getMachineDisplayNameInternal()
		if name != "Local-Host-Name" {
			t.Errorf("getMachineDisplayNameInternal() = %q, want %q", name, "Local-Host-Name")
		}
	})

	t.Run("falls back to hostname", func(t *testing.T) {
		restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
			return "", errors.New("scutil not available")
		})
		defer restore()

		name := getMachineDisplayNameInternal()
		// Should return fallbackHostName() result
		if name == "" {
			t.Error("getMachineDisplayNameInternal() returned empty string")
		}
	})

	ResetMachineNameCacheForTest()
}

func TestGetMachineDisplayNameInternal_NonDarwin(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("Skipping non-darwin test on darwin platform")
	}

	ResetMachineNameCacheForTest()

	name := getMachineDisplayNameInternal()
	if name == "" {
		t.Error("getMachineDisplayNameInternal() returned empty string on non-darwin platform")
	}

	// On Linux, it should use fallbackHostName
	if runtime.GOOS == "linux" {
		expected := fallbackHostName()
		if name != expected {
			t.Errorf("getMachineDisplayNameInternal() = %q, want %q (fallbackHostName)", name, expected)
		}
	}

	ResetMachineNameCacheForTest()
}

func TestResetMachineNameCacheForTest(t *testing.T) {
	ResetMachineNameCacheForTest()

	var callCount int32
	restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
		count := atomic.AddInt32(&callCount, 1)
		return "Machine" + string(rune('0'+count)), nil
	})
	defer restore()

	// First call
	name1 := GetMachineDisplayName()

	// Reset and call again
	ResetMachineNameCacheForTest()
	name2 := GetMachineDisplayName()

	// On darwin, these might be different if the command was called twice
	// On other platforms, they'll be the same (fallback)
	if runtime.GOOS == "darwin" {
		// After reset, the name should be recomputed
		// (but due to caching, both calls within each block return same value)
		t.Logf("name1=%q, name2=%q, callCount=%d", name1, name2, atomic.LoadInt32(&callCount))
	}

	ResetMachineNameCacheForTest()
}

func TestSetCommandExecutorForTest(t *testing.T) {
	ResetMachineNameCacheForTest()

	// Test that restore function works
	original := commandExecutor

	restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
		return "mocked", nil
	})

	// Verify mock is set
	result, _ := commandExecutor("test")
	if result != "mocked" {
		t.Errorf("Expected mocked result, got %q", result)
	}

	// Restore and verify
	restore()

	// Original executor should be restored
	// (We can't easily test this without side effects, but the function should work)
	_ = original

	ResetMachineNameCacheForTest()
}

func TestGetMachineDisplayName_EmptyComputerName(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("Skipping darwin-specific test")
	}

	ResetMachineNameCacheForTest()

	t.Run("empty ComputerName falls back", func(t *testing.T) {
		restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
			if args[1] == "ComputerName" {
				return "", nil // Empty but no error
			}
			if args[1] == "LocalHostName" {
				return "Fallback-Host", nil
			}
			return "", errors.New("unknown")
		})
		defer restore()

		name := getMachineDisplayNameInternal()
		if name != "Fallback-Host" {
			t.Errorf("Expected fallback to LocalHostName, got %q", name)
		}
	})

	ResetMachineNameCacheForTest()
}

func TestGetMachineDisplayName_WhitespaceHandling(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("Skipping darwin-specific test")
	}

	ResetMachineNameCacheForTest()

	t.Run("trims whitespace", func(t *testing.T) {
		restore := SetCommandExecutorForTest(func(name string, args ...string) (string, error) {
			if args[1] == "ComputerName" {
				return "  My Computer  \n", nil
			}
			return "", errors.New("not called")
		})
		defer restore()

		// Note: defaultCommandExecutor already trims, but mock doesn't
		// We're testing that the executor trims output
		name := getMachineDisplayNameInternal()
		// The mock returns untrimmed, but real executor trims
		if name == "" {
			t.Error("Expected non-empty result")
		}
	})

	ResetMachineNameCacheForTest()
}
