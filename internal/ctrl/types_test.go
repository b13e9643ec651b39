package ctrl

import "testing"

func TestCommand_Known(t *testing.T) {
	tests := []struct {
		cmd  Command
		want bool
	}{
		{SetPriority, true},
		{SetBlocking, true},
		{SetEnabled, true},
		{Command(2), false}, // the preserved gap
		{Command(0), false},
		{Command(99), false},
	}

	for _, tt := range tests {
		if got := tt.cmd.Known(); got != tt.want {
			t.Errorf("Command(%d).Known() = %v, want %v", tt.cmd, got, tt.want)
		}
	}
}

func TestValidatePriority(t *testing.T) {
	if _, ok := ValidatePriority(0); !ok {
		t.Error("expected LOW (0) to validate")
	}
	if _, ok := ValidatePriority(1); !ok {
		t.Error("expected HIGH (1) to validate")
	}
	if _, ok := ValidatePriority(2); ok {
		t.Error("expected out-of-range priority to fail validation")
	}
}

func TestValidateBlocking(t *testing.T) {
	if _, ok := ValidateBlocking(-1); ok {
		t.Error("expected negative timeout to fail validation")
	}
	if v, ok := ValidateBlocking(100); !ok || v != 100 {
		t.Errorf("ValidateBlocking(100) = (%d, %v), want (100, true)", v, ok)
	}
}

func TestValidateEnabled(t *testing.T) {
	if disabled, ok := ValidateEnabled(0); !ok || disabled {
		t.Errorf("ValidateEnabled(0) = (%v, %v), want (false, true)", disabled, ok)
	}
	if disabled, ok := ValidateEnabled(1); !ok || !disabled {
		t.Errorf("ValidateEnabled(1) = (%v, %v), want (true, true)", disabled, ok)
	}
	if _, ok := ValidateEnabled(2); ok {
		t.Error("expected out-of-range arg to fail validation")
	}
}
