package proto

import (
	"bufio"
	"strings"
	"testing"
)

func TestParseSpartanBasic(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("example.com /notes 5\r\nhello"))
	req, err := ParseSpartan(br, 1028)
	if err != nil {
		t.Fatal(err)
	}
	if req.Host != "example.com" || req.Path != "/notes" || req.Query != "hello" {
		t.Fatalf("got %+v", req)
	}
}

func TestParseSpartanZeroLength(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("example.com / 0\r\n"))
	req, err := ParseSpartan(br, 1028)
	if err != nil {
		t.Fatal(err)
	}
	if req.Query != "" {
		t.Fatalf("expected empty query, got %q", req.Query)
	}
}

func TestParseSpartanOverflowsBuffer(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("example.com / 5000\r\n"))
	_, err := ParseSpartan(br, 1028)
	if err == nil {
		t.Fatal("expected insufficient buffer error")
	}
}

func TestParseSpartanMalformed(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("onlytwo fields\r\n"))
	_, err := ParseSpartan(br, 1028)
	if err == nil {
		t.Fatal("expected malformed request error")
	}
}
