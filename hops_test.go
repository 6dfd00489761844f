package forwarded

import (
	"errors"
	"net/http"
	"testing"
)

func TestSplitHeaderValues(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{
			name:   "single value",
			values: []string{"1.1.1.1"},
			want:   []string{"1.1.1.1"},
		},
		{
			name:   "comma separated with spaces",
			values: []string{"1.1.1.1, 2.2.2.2 ,3.3.3.3"},
			want:   []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"},
		},
		{
			name:   "multiple header lines",
			values: []string{"1.1.1.1, 2.2.2.2", "3.3.3.3"},
			want:   []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"},
		},
		{
			name:   "empty parts are dropped",
			values: []string{", 1.1.1.1,, ,2.2.2.2,"},
			want:   []string{"1.1.1.1", "2.2.2.2"},
		},
		{
			name:   "no values",
			values: nil,
			want:   nil,
		},
	}

	cfg := mustConfig(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.splitHeaderValues(tt.values, DefaultForwardedForHeader)
			if err != nil {
				t.Fatalf("splitHeaderValues() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("splitHeaderValues() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitHeaderValues()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitHeaderValues_ChainTooLong(t *testing.T) {
	cfg := mustConfig(t, MaxChainLength(2))

	_, err := cfg.splitHeaderValues([]string{"1.1.1.1, 2.2.2.2, 3.3.3.3"}, DefaultForwardedForHeader)
	if !errors.Is(err, ErrChainTooLong) {
		t.Fatalf("splitHeaderValues() error = %v, want ErrChainTooLong", err)
	}

	var chainErr *ChainTooLongError
	if !errors.As(err, &chainErr) {
		t.Fatalf("splitHeaderValues() error type = %T, want *ChainTooLongError", err)
	}
	if chainErr.MaxLength != 2 {
		t.Errorf("ChainTooLongError.MaxLength = %d, want 2", chainErr.MaxLength)
	}
	if chainErr.HeaderName() != DefaultForwardedForHeader {
		t.Errorf("ChainTooLongError.HeaderName() = %q, want %q", chainErr.HeaderName(), DefaultForwardedForHeader)
	}
}

func TestCollectChains_EnabledFeaturesOnly(t *testing.T) {
	cfg := mustConfig(t, WithFeatures(ForwardedFor))

	header := make(http.Header)
	header.Set("X-Forwarded-For", "1.1.1.1")
	header.Set("X-Forwarded-Proto", "https")
	header.Set("X-Forwarded-Host", "example.com")

	chains, err := cfg.collectChains(header)
	if err != nil {
		t.Fatalf("collectChains() error = %v", err)
	}

	if len(chains.forValues) != 1 {
		t.Errorf("forValues = %v, want one entry", chains.forValues)
	}
	if chains.protoValues != nil {
		t.Errorf("protoValues = %v, want nil for disabled feature", chains.protoValues)
	}
	if chains.hostValues != nil {
		t.Errorf("hostValues = %v, want nil for disabled feature", chains.hostValues)
	}
}

func TestCollectChains_NilHeader(t *testing.T) {
	cfg := mustConfig(t)

	chains, err := cfg.collectChains(nil)
	if err != nil {
		t.Fatalf("collectChains(nil) error = %v", err)
	}
	if !chains.empty() {
		t.Errorf("collectChains(nil) = %+v, want empty", chains)
	}
}

func TestBuildHopEntries_ReversesWireOrder(t *testing.T) {
	cfg := mustConfig(t, WithFeatures(ForwardedFor|ForwardedProto|ForwardedHost))

	chains := headerChains{
		forValues:   []string{"10.0.0.3", "10.0.0.2", "10.0.0.1"},
		protoValues: []string{"https", "http", "http"},
		hostValues:  []string{"client.example", "mid.example", "edge.example"},
	}

	entries, err := cfg.buildHopEntries(chains)
	if err != nil {
		t.Fatalf("buildHopEntries() error = %v", err)
	}

	want := []hopEntry{
		{addrText: "10.0.0.1", scheme: "http", host: "edge.example"},
		{addrText: "10.0.0.2", scheme: "http", host: "mid.example"},
		{addrText: "10.0.0.3", scheme: "https", host: "client.example"},
	}

	if len(entries) != len(want) {
		t.Fatalf("buildHopEntries() returned %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestBuildHopEntries_UnevenChains(t *testing.T) {
	cfg := mustConfig(t, WithFeatures(ForwardedFor|ForwardedProto))

	chains := headerChains{
		forValues:   []string{"10.0.0.2", "10.0.0.1"},
		protoValues: []string{"https"},
	}

	entries, err := cfg.buildHopEntries(chains)
	if err != nil {
		t.Fatalf("buildHopEntries() error = %v", err)
	}

	want := []hopEntry{
		{addrText: "10.0.0.1", scheme: "https"},
		{addrText: "10.0.0.2"},
	}

	if len(entries) != len(want) {
		t.Fatalf("buildHopEntries() returned %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestBuildHopEntries_ForwardLimitCapsEntries(t *testing.T) {
	cfg := mustConfig(t, WithFeatures(ForwardedFor), ForwardLimit(2))

	chains := headerChains{
		forValues: []string{"10.0.0.3", "10.0.0.2", "10.0.0.1"},
	}

	entries, err := cfg.buildHopEntries(chains)
	if err != nil {
		t.Fatalf("buildHopEntries() error = %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("buildHopEntries() returned %d entries, want 2", len(entries))
	}
	if entries[0].addrText != "10.0.0.1" || entries[1].addrText != "10.0.0.2" {
		t.Errorf("entries = %+v, want nearest two hops", entries)
	}
}

func TestCheckSymmetry(t *testing.T) {
	tests := []struct {
		name    string
		chains  headerChains
		wantErr bool
	}{
		{
			name: "equal counts",
			chains: headerChains{
				forValues:   []string{"1.1.1.1", "2.2.2.2"},
				protoValues: []string{"https", "http"},
			},
			wantErr: false,
		},
		{
			name: "absent header does not participate",
			chains: headerChains{
				forValues: []string{"1.1.1.1", "2.2.2.2"},
			},
			wantErr: false,
		},
		{
			name: "mismatched counts",
			chains: headerChains{
				forValues:   []string{"1.1.1.1", "2.2.2.2"},
				protoValues: []string{"https"},
			},
			wantErr: true,
		},
	}

	cfg := mustConfig(t, WithFeatures(ForwardedFor|ForwardedProto), RequireHeaderSymmetry(true))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cfg.checkSymmetry(tt.chains)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkSymmetry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}

			var symmetryErr *HeaderSymmetryError
			if !errors.As(err, &symmetryErr) {
				t.Fatalf("checkSymmetry() error type = %T, want *HeaderSymmetryError", err)
			}
			if !errors.Is(err, ErrHeaderAsymmetry) {
				t.Errorf("checkSymmetry() error does not wrap ErrHeaderAsymmetry")
			}
			if symmetryErr.ForCount != 2 || symmetryErr.ProtoCount != 1 {
				t.Errorf("counts = for=%d proto=%d, want for=2 proto=1", symmetryErr.ForCount, symmetryErr.ProtoCount)
			}
		})
	}
}
