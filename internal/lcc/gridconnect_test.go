package lcc

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Frame
		wantErr bool
	}{
		{
			name:  "event report",
			input: ":X195B4123N0501010122600064;",
			want: Frame{
				Header: 0x195B4123,
				Data:   []byte{0x05, 0x01, 0x01, 0x01, 0x22, 0x60, 0x00, 0x64},
			},
		},
		{
			name:  "control frame no data",
			input: ":X10700ABC;",
			want:  Frame{Header: 0x10700ABC},
		},
		{
			name:  "lowercase",
			input: ":x195b4123n0501010122600064;",
			want: Frame{
				Header: 0x195B4123,
				Data:   []byte{0x05, 0x01, 0x01, 0x01, 0x22, 0x60, 0x00, 0x64},
			},
		},
		{
			name:  "short header",
			input: ":X702N;",
			want:  Frame{Header: 0x702},
		},
		{
			name:  "surrounding whitespace",
			input: "  :X10700ABCN;\r\n",
			want:  Frame{Header: 0x10700ABC},
		},
		{
			name:  "single data byte",
			input: ":X19828123N05;",
			want:  Frame{Header: 0x19828123, Data: []byte{0x05}},
		},
		{
			name:    "missing colon",
			input:   "X195B4123N05;",
			wantErr: true,
		},
		{
			name:    "missing terminator",
			input:   ":X195B4123N05",
			wantErr: true,
		},
		{
			name:    "standard frame marker",
			input:   ":S123N05;",
			wantErr: true,
		},
		{
			name:    "header not hex",
			input:   ":XGARBAGEN05;",
			wantErr: true,
		},
		{
			name:    "header exceeds 29 bits",
			input:   ":X3FFFFFFFN;",
			wantErr: true,
		},
		{
			name:    "header too wide",
			input:   ":X123456789N;",
			wantErr: true,
		},
		{
			name:    "odd data length",
			input:   ":X195B4123N050;",
			wantErr: true,
		},
		{
			name:    "data too long",
			input:   ":X195B4123N050101012260006405;",
			wantErr: true,
		},
		{
			name:    "data not hex",
			input:   ":X195B4123NZZ;",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrame(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseFrame(%q) expected error, got nil", tt.input)
				}
				if !errors.Is(err, ErrInvalidFrame) {
					t.Errorf("error = %v, want ErrInvalidFrame", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseFrame(%q) unexpected error: %v", tt.input, err)
			}
			if got.Header != tt.want.Header {
				t.Errorf("header = %08X, want %08X", got.Header, tt.want.Header)
			}
			if !bytes.Equal(got.Data, tt.want.Data) {
				t.Errorf("data = % X, want % X", got.Data, tt.want.Data)
			}
		})
	}
}

func TestFrameEncode(t *testing.T) {
	f := eventReportFrame(0x123, 0x0501010122600064)
	want := ":X195B4123N0501010122600064;"
	if got := string(f.Encode()); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}

	// Control frames with no payload still carry the N marker.
	r := ridFrame(0xABC)
	if got := string(r.Encode()); got != ":X10700ABCN;" {
		t.Errorf("Encode() = %q, want %q", got, ":X10700ABCN;")
	}
}

func TestFrameEncodeParseRoundTrip(t *testing.T) {
	frames := []Frame{
		cidFrame(0, DefaultNodeID, 0xABC),
		ridFrame(0xABC),
		amdFrame(0xABC, DefaultNodeID),
		amrFrame(0xABC, DefaultNodeID),
		eventReportFrame(0xABC, DefaultBaseEventID|0x05FF),
	}

	for _, f := range frames {
		parsed, err := ParseFrame(string(f.Encode()))
		if err != nil {
			t.Fatalf("ParseFrame(%q) error: %v", f.Encode(), err)
		}
		if parsed.Header != f.Header {
			t.Errorf("header = %08X, want %08X", parsed.Header, f.Header)
		}
		if !bytes.Equal(parsed.Data, f.Data) {
			t.Errorf("data = % X, want % X", parsed.Data, f.Data)
		}
	}
}

func TestCheckInFrames(t *testing.T) {
	// Node id 05.01.01.01.9F.60 splits into 12-bit fragments
	// 050, 101, 019, F60 carried by CID prefixes 7 down to 4.
	node := NodeID(0x050101019F60)
	alias := uint16(0xABC)

	wantHeaders := []uint32{0x17050ABC, 0x16101ABC, 0x15019ABC, 0x14F60ABC}

	for i, want := range wantHeaders {
		f := cidFrame(i, node, alias)
		if f.Header != want {
			t.Errorf("cidFrame(%d) header = %08X, want %08X", i, f.Header, want)
		}
		if !f.IsCID() {
			t.Errorf("cidFrame(%d).IsCID() = false, want true", i)
		}
		if !f.IsControl() {
			t.Errorf("cidFrame(%d).IsControl() = false, want true", i)
		}
		if f.Alias() != alias {
			t.Errorf("cidFrame(%d).Alias() = %03X, want %03X", i, f.Alias(), alias)
		}
		if len(f.Data) != 0 {
			t.Errorf("cidFrame(%d) carries %d data bytes, want none", i, len(f.Data))
		}
	}
}

func TestAliasManagementFrames(t *testing.T) {
	node := DefaultNodeID
	alias := uint16(0x5A3)
	nodeBytes := []byte{0x05, 0x01, 0x01, 0x01, 0x9F, 0x60}

	rid := ridFrame(alias)
	if rid.Header != 0x107005A3 {
		t.Errorf("rid header = %08X, want %08X", rid.Header, 0x107005A3)
	}
	if !rid.IsRID() || rid.IsCID() || rid.IsAMD() {
		t.Error("rid frame misclassified")
	}

	amd := amdFrame(alias, node)
	if amd.Header != 0x107015A3 {
		t.Errorf("amd header = %08X, want %08X", amd.Header, 0x107015A3)
	}
	if !amd.IsAMD() {
		t.Error("IsAMD() = false, want true")
	}
	if !bytes.Equal(amd.Data, nodeBytes) {
		t.Errorf("amd data = % X, want % X", amd.Data, nodeBytes)
	}

	amr := amrFrame(alias, node)
	if amr.Header != 0x107035A3 {
		t.Errorf("amr header = %08X, want %08X", amr.Header, 0x107035A3)
	}
	if !amr.IsAMR() {
		t.Error("IsAMR() = false, want true")
	}
	if !bytes.Equal(amr.Data, nodeBytes) {
		t.Errorf("amr data = % X, want % X", amr.Data, nodeBytes)
	}

	ame := Frame{Header: headerAME | uint32(alias)}
	if !ame.IsAME() {
		t.Error("IsAME() = false, want true")
	}
	if ame.IsCID() {
		t.Error("ame frame classified as CID")
	}
}

func TestFrameEventID(t *testing.T) {
	event := CommandEventID(DefaultBaseEventID, ParamBrightness, 200)

	f := eventReportFrame(0x123, event)
	if !f.IsEventReport() {
		t.Fatal("IsEventReport() = false, want true")
	}
	got, ok := f.EventID()
	if !ok {
		t.Fatal("EventID() ok = false, want true")
	}
	if got != event {
		t.Errorf("EventID() = %016X, want %016X", uint64(got), uint64(event))
	}

	// Control frames and truncated reports carry no event.
	if _, ok := ridFrame(0x123).EventID(); ok {
		t.Error("EventID() on RID frame returned ok")
	}
	truncated := Frame{Header: headerEventReport | 0x123, Data: []byte{0x05, 0x01}}
	if _, ok := truncated.EventID(); ok {
		t.Error("EventID() on truncated report returned ok")
	}
}

func TestEventReportNotControl(t *testing.T) {
	f := eventReportFrame(0x123, DefaultBaseEventID)
	if f.IsControl() {
		t.Error("event report classified as control frame")
	}
	if f.IsCID() {
		t.Error("event report classified as CID")
	}
}
