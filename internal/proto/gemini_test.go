package proto

import (
	"bufio"
	"strings"
	"testing"
)

func TestParseGeminiBasic(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("gemini://example.com/docs/page.gmi?q=1\r\n"))
	req, err := ParseGemini(br, false)
	if err != nil {
		t.Fatal(err)
	}
	if req.Host != "example.com" || req.Path != "/docs/page.gmi" || req.Query != "q=1" {
		t.Fatalf("got %+v", req)
	}
}

func TestParseGeminiWithPort(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("gemini://example.com:1965/\r\n"))
	req, err := ParseGemini(br, false)
	if err != nil {
		t.Fatal(err)
	}
	if req.Host != "example.com" || req.Port != "1965" || req.Path != "/" {
		t.Fatalf("got %+v", req)
	}
}

func TestParseGeminiEmptyHostRejected(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("gemini:///path\r\n"))
	_, err := ParseGemini(br, false)
	if err == nil {
		t.Fatal("expected error for empty host")
	}
}

func TestParseGeminiNoPathSynthesizesSlash(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("gemini://example.com\r\n"))
	req, err := ParseGemini(br, false)
	if err != nil {
		t.Fatal(err)
	}
	if req.Path != "/" {
		t.Fatalf("path = %q", req.Path)
	}
}

func TestParseGeminiUnsupportedScheme(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("https://example.com/\r\n"))
	_, err := ParseGemini(br, false)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseGeminiOverflow(t *testing.T) {
	longPath := strings.Repeat("a", 2000)
	br := bufio.NewReader(strings.NewReader("gemini://example.com/" + longPath + "\r\n"))
	_, err := ParseGemini(br, false)
	if err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestParseGeminiFoldsPathCaseOnly(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("gemini://Example.com/DOCS/Page.GMI?Q=Upper\r\n"))
	req, err := ParseGemini(br, false)
	if err != nil {
		t.Fatal(err)
	}
	if req.Path != "/docs/page.gmi" {
		t.Fatalf("path = %q", req.Path)
	}
	if req.Query != "Q=Upper" {
		t.Fatalf("query should not be case-folded: %q", req.Query)
	}
}

func TestParseTitanParamsAndBody(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("titan://example.com/notes/x.gmi?mime=text/gemini;size=5;token=secret\r\nHello"))
	req, err := ParseGemini(br, true)
	if err != nil {
		t.Fatal(err)
	}
	if req.Titan == nil {
		t.Fatal("expected titan params")
	}
	if req.Titan.MIME != "text/gemini" || req.Titan.Size != 5 || req.Titan.Token != "secret" {
		t.Fatalf("got %+v", req.Titan)
	}
	body, berr := ReceiveTitanBody(br, req.Titan.Size, 1028)
	if berr != nil {
		t.Fatal(berr)
	}
	if string(body) != "Hello" {
		t.Fatalf("body = %q", body)
	}
}

func TestReceiveTitanBodyShortReadFails(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("Hi"))
	_, err := ReceiveTitanBody(br, 10, 1028)
	if err == nil {
		t.Fatal("expected error on short body")
	}
}

func TestReceiveTitanBodyTooLargeForBuffer(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("Hi"))
	_, err := ReceiveTitanBody(br, 2000, 1028)
	if err == nil {
		t.Fatal("expected insufficient buffer error")
	}
}
