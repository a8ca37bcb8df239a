package tripplan

import (
	"encoding/json"
	"testing"
)

func TestPlainItemJSONStaysAString(t *testing.T) {
	blob, err := json.Marshal(PlainItem("Walk the Alfama district at dusk."))
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != `"Walk the Alfama district at dusk."` {
		t.Fatalf("plain item serialized as %s", blob)
	}
	var back Item
	if err := json.Unmarshal(blob, &back); err != nil {
		t.Fatal(err)
	}
	if !back.IsPlain() || back.Text != "Walk the Alfama district at dusk." {
		t.Fatalf("round trip lost the plain variant: %+v", back)
	}
}

func TestStructuredItemJSONIsAnObject(t *testing.T) {
	item := StructuredItem("Book Sintra tickets online.", TagAction,
		Link{Label: "Tickets", URL: "https://example.com/sintra", Type: LinkBooking})
	blob, err := json.Marshal(item)
	if err != nil {
		t.Fatal(err)
	}
	var back Item
	if err := json.Unmarshal(blob, &back); err != nil {
		t.Fatal(err)
	}
	if back.IsPlain() {
		t.Fatal("structured item decoded as plain")
	}
	if back.Tag != TagAction || len(back.Links) != 1 || back.Links[0].Type != LinkBooking {
		t.Fatalf("round trip mangled structured item: %+v", back)
	}
}

func TestItemRejectsOtherJSONShapes(t *testing.T) {
	var item Item
	if err := json.Unmarshal([]byte(`42`), &item); err == nil {
		t.Fatal("expected number to be rejected as an item")
	}
}
