package utils

import (
	"net/http"
	"testing"
)

func TestParseQuery(t *testing.T) {
	query := "BBOX=148.0%2C-36.0%2C149.0%2C-35.0&Width=512&time=2020-01-05T00%3A00%3A00.000Z&flag"
	params, err := ParseQuery(query)
	if err != nil {
		t.Fatal(err)
	}

	if params["bbox"][0] != "148.0,-36.0,149.0,-35.0" {
		t.Errorf("bbox decoded wrong: %s", params["bbox"][0])
	}
	if params["width"][0] != "512" {
		t.Errorf("keys should be lower-cased")
	}
	if params["time"][0] != "2020-01-05T00:00:00.000Z" {
		t.Errorf("time decoded wrong: %s", params["time"][0])
	}
	if vals, ok := params["flag"]; !ok || vals[0] != "" {
		t.Errorf("bare keys should map to an empty value")
	}
}

func TestParseQueryMalformedEscape(t *testing.T) {
	// net/url rejects these outright, here they pass through
	params, err := ParseQuery("a=100%&b=%zz")
	if err != nil {
		t.Fatal(err)
	}
	if params["a"][0] != "100%" {
		t.Errorf("trailing percent should pass through, actual %s", params["a"][0])
	}
	if params["b"][0] != "%zz" {
		t.Errorf("bad escape should pass through, actual %s", params["b"][0])
	}
}

func TestParseRemoteAddr(t *testing.T) {
	r := &http.Request{RemoteAddr: "10.0.0.1:4321", Header: http.Header{}}
	if addr := ParseRemoteAddr(r); addr != "10.0.0.1:4321" {
		t.Errorf("socket peer expected, actual %s", addr)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	if addr := ParseRemoteAddr(r); addr != "203.0.113.7" {
		t.Errorf("first forwarded address expected, actual %s", addr)
	}
}
