package protocol

import (
	"reflect"
	"testing"

	"pagetap/pkg/model"
)

func TestParseRawHeaders(t *testing.T) {
	raw := "content-type: application/json\r\ncontent-length: 2\r\n"
	got := ParseRawHeaders(raw)
	want := []model.HeaderPair{
		{Name: "content-type", Value: "application/json"},
		{Name: "content-length", Value: "2"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseRawHeaders = %+v, want %+v", got, want)
	}
}

func TestParseRawHeadersEmpty(t *testing.T) {
	got := ParseRawHeaders("")
	if got == nil || len(got) != 0 {
		t.Errorf("ParseRawHeaders(\"\") = %v, want empty non-nil slice", got)
	}
}

func TestParseRawHeadersTrimsWhitespace(t *testing.T) {
	got := ParseRawHeaders("  X-Trace :  abc123  \r\n")
	want := []model.HeaderPair{{Name: "X-Trace", Value: "abc123"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseRawHeaders = %+v, want %+v", got, want)
	}
}

func TestParseRawHeadersDropsMalformedLines(t *testing.T) {
	raw := "ok: yes\r\nno-colon-here\r\nlocation: https://example.com:8443/x\r\nalso: fine\r\n"
	got := ParseRawHeaders(raw)
	want := []model.HeaderPair{
		{Name: "ok", Value: "yes"},
		{Name: "also", Value: "fine"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseRawHeaders = %+v, want %+v", got, want)
	}
}

func TestParseRawHeadersKeepsLineOrder(t *testing.T) {
	raw := "b: 2\r\na: 1\r\nc: 3\r\n"
	got := ParseRawHeaders(raw)
	if len(got) != 3 || got[0].Name != "b" || got[1].Name != "a" || got[2].Name != "c" {
		t.Errorf("ParseRawHeaders order = %+v, want b,a,c", got)
	}
}
