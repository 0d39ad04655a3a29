package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestInputSchemaKeepsDeclaredOrder(t *testing.T) {
	tools := Tools()

	b, err := json.Marshal(tools[0].InputSchema)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"object","properties":{` +
		`"sensorKey":{"type":"string","description":"The identifier for the sensor"},` +
		`"startDate":{"type":"string","description":"The start date for the telemetry request (ISO 8601 format)"},` +
		`"endDate":{"type":"string","description":"The end date for the telemetry request (ISO 8601 format)"}},` +
		`"required":["sensorKey","startDate","endDate"]}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}

	b, err = json.Marshal(tools[1])
	if err != nil {
		t.Fatal(err)
	}
	if i, j := strings.Index(string(b), `"actionType"`), strings.Index(string(b), `"actionSpec"`); i < 0 || j < 0 || i > j {
		t.Fatalf("actionType must precede actionSpec: %s", b)
	}
}

func TestInputSchemaUnlistedPropertiesFollow(t *testing.T) {
	s := InputSchema{
		Type: "object",
		Properties: map[string]SchemaProperty{
			"b": {Type: "string"},
			"z": {Type: "string"},
			"a": {Type: "string"},
		},
		Required:      []string{"z"},
		PropertyOrder: []string{"z", "missing"},
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"object","properties":{"z":{"type":"string","description":""},"a":{"type":"string","description":""},"b":{"type":"string","description":""}},"required":["z"]}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}
}
