package headers

import (
	"reflect"
	"testing"
)

func TestSanitizeDropsSecretHeaders(t *testing.T) {
	safe, dropped := Sanitize(map[string]string{
		"Authorization": "Bearer x",
		"X-Foo":         "y",
	}, false)

	if _, ok := safe["Authorization"]; ok {
		t.Fatal("Authorization must be dropped")
	}
	if safe["X-Foo"] != "y" {
		t.Fatalf("X-Foo must survive, got %v", safe)
	}
	if !reflect.DeepEqual(dropped, []string{"Authorization"}) {
		t.Fatalf("dropped=%v, want [Authorization]", dropped)
	}
}

func TestSanitizeIsCaseInsensitive(t *testing.T) {
	_, dropped := Sanitize(map[string]string{
		"COOKIE":              "a=b",
		"proxy-Authorization": "Basic x",
		"Accept":              "text/html",
	}, false)
	if len(dropped) != 2 {
		t.Fatalf("dropped=%v, want two entries", dropped)
	}
}

func TestSanitizeDroppedNamesAreSorted(t *testing.T) {
	_, dropped := Sanitize(map[string]string{
		"Cookie":        "a",
		"Authorization": "b",
	}, false)
	if !reflect.DeepEqual(dropped, []string{"Authorization", "Cookie"}) {
		t.Fatalf("dropped=%v, want sorted names", dropped)
	}
}

func TestSanitizeAllowUnsafePassesThrough(t *testing.T) {
	safe, dropped := Sanitize(map[string]string{"Authorization": "x"}, true)
	if safe["Authorization"] != "x" || dropped != nil {
		t.Fatalf("override must pass headers through, got safe=%v dropped=%v", safe, dropped)
	}
}

func TestSanitizeEmptyInput(t *testing.T) {
	safe, dropped := Sanitize(nil, false)
	if len(safe) != 0 || dropped != nil {
		t.Fatalf("got safe=%v dropped=%v", safe, dropped)
	}
}
