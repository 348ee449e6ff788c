package cmd

import "testing"

func TestValidateFetchFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   FetchFlags
		wantErr bool
	}{
		{"configured batches", FetchFlags{}, false},
		{"single batch", FetchFlags{UpdateType: "Software", Section: "Panorama M Images", All: true}, false},
		{"type without section", FetchFlags{UpdateType: "Software"}, true},
		{"section without type", FetchFlags{Section: "Apps"}, true},
		{"all without batch", FetchFlags{All: true}, true},
		{"negative expectation", FetchFlags{UpdateType: "Dynamic", Section: "Apps", Expected: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFetchFlags(&tt.flags)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFetchFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateWatchFlags(t *testing.T) {
	if err := validateWatchFlags(&WatchFlags{Expected: -2}); err == nil {
		t.Error("expected error for negative expectation")
	}
	if err := validateWatchFlags(&WatchFlags{Dir: "/tmp"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
