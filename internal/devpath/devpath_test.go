package devpath

import "testing"

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"root", "/phys", true},
		{"single segment", "/phys/A", true},
		{"nested segments", "/phys/A/B/C", true},
		{"connector suffix", "/phys/A:connector:PE0", true},
		{"device suffix", "/phys/A:device:nvme0", true},
		{"device suffix with colon-separated text", "/phys/A:device:nvme0:part1", true},
		{"missing leading phys", "/A/B", false},
		{"empty string", "", false},
		{"trailing slash", "/phys/A/", false},
		{"bad segment chars", "/phys/A B", false},
		{"unknown namespace", "/phys/A:widget:X", false},
		{"connector text with dot", "/phys/A:connector:P.E0", false},
		{"missing text", "/phys/A:connector:", false},
		{"two parts only", "/phys/A:connector", false},
		{"four parts", "/phys/A:connector:PE0:extra", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.input); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestComponents(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantPath string
		wantNS   Namespace
		wantText string
		wantErr  bool
	}{
		{"bare path", "/phys/A/B", "/phys/A/B", NamespaceNone, "", false},
		{"connector", "/phys/A:connector:PE0", "/phys/A", NamespaceConnector, "PE0", false},
		{"device", "/phys/A:device:nvme0", "/phys/A", NamespaceDevice, "nvme0", false},
		{"invalid", "not-a-devpath", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ns, text, err := Components(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Components(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if path != tt.wantPath || ns != tt.wantNS || text != tt.wantText {
				t.Errorf("Components(%q) = (%q,%q,%q), want (%q,%q,%q)",
					tt.input, path, ns, text, tt.wantPath, tt.wantNS, tt.wantText)
			}
		})
	}
}

func TestJoinRoundTrip(t *testing.T) {
	tests := []string{
		"/phys",
		"/phys/A/B",
		"/phys/A:connector:PE0",
		"/phys/A:device:nvme0",
	}

	for _, s := range tests {
		path, ns, text, err := Components(s)
		if err != nil {
			t.Fatalf("Components(%q) returned error: %v", s, err)
		}
		if got := Join(path, ns, text); got != s {
			t.Errorf("Join(Components(%q)) = %q, want %q", s, got, s)
		}
	}
}

func TestPlugin(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/phys/A/B", "/phys/A/B"},
		{"/phys/A:connector:PE0", "/phys/A"},
		{"/phys/A:device:nvme0", "/phys/A"},
	}

	for _, tt := range tests {
		if got := Plugin(tt.input); got != tt.want {
			t.Errorf("Plugin(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"/phys", nil},
		{"/phys/A", []string{"A"}},
		{"/phys/A/B/C", []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		got := Segments(tt.input)
		if len(got) != len(tt.want) {
			t.Fatalf("Segments(%q) = %v, want %v", tt.input, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Segments(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestDepth(t *testing.T) {
	if Depth("/phys") != 0 {
		t.Errorf("Depth(/phys) != 0")
	}
	if Depth("/phys/A/B") != 2 {
		t.Errorf("Depth(/phys/A/B) != 2")
	}
}

func TestLess(t *testing.T) {
	if !Less("/phys/A", "/phys/B") {
		t.Errorf("expected /phys/A < /phys/B")
	}
	if !Less("/phys/A", "/phys/A:connector:PE0") {
		t.Errorf("expected bare path to sort before suffixed path with same plugin")
	}
}
