package worksheet

import (
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     string
		strategy string
		ok       bool
	}{
		{
			name:     "direct object",
			raw:      `{"past": ["a"]}`,
			want:     `{"past": ["a"]}`,
			strategy: "direct",
			ok:       true,
		},
		{
			name:     "fenced json block",
			raw:      "Here it is:\n```json\n{\"past\": [\"a\"]}\n```\nEnjoy.",
			want:     `{"past": ["a"]}`,
			strategy: "fenced",
			ok:       true,
		},
		{
			name:     "fenced block without language",
			raw:      "```\n{\"past\": [\"a\"]}\n```",
			want:     `{"past": ["a"]}`,
			strategy: "fenced",
			ok:       true,
		},
		{
			name:     "braces inside prose",
			raw:      `Sure! {"past": ["a"], "vocab": []} Hope this helps.`,
			want:     `{"past": ["a"], "vocab": []}`,
			strategy: "braces",
			ok:       true,
		},
		{
			name: "no braces",
			raw:  "Lo siento, no puedo ayudar con eso.",
			ok:   false,
		},
		{
			name: "unbalanced braces",
			raw:  `{"past": ["a"]`,
			ok:   false,
		},
		{
			name: "array is not an object",
			raw:  `["a", "b"]`,
			ok:   false,
		},
		{
			name: "empty",
			raw:  "",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy, ok := ExtractWithStrategy(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (got %q)", ok, tt.ok, got)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
			if strategy != tt.strategy {
				t.Errorf("strategy = %q, want %q", strategy, tt.strategy)
			}
		})
	}
}

func TestExtractIdempotent(t *testing.T) {
	inputs := []string{
		`{"past": ["Ayer ____ (ir) al cine."]}`,
		"```json\n{\"present\": [\"Hoy ____ (tener) prisa.\"]}\n```",
		`Claro: {"future": ["Mañana ____ (hacer) frío."]} ¡Suerte!`,
	}
	for _, in := range inputs {
		first, ok := Extract(in)
		if !ok {
			t.Fatalf("Extract(%q) found nothing", in)
		}
		second, ok := Extract(first)
		if !ok {
			t.Fatalf("Extract of extracted text %q found nothing", first)
		}
		if first != second {
			t.Errorf("not idempotent: %q then %q", first, second)
		}
	}
}

func TestExtractFencedExact(t *testing.T) {
	body := "{\n  \"past\": [\"Ayer ____ (ser) lunes.\"],\n  \"vocab\": [\"La casa es grande.\"]\n}"
	raw := "Aquí tienes la hoja:\n\n```json\n" + body + "\n```\n"
	got, ok := Extract(raw)
	if !ok {
		t.Fatal("expected fenced block to be found")
	}
	if got != body {
		t.Errorf("got %q, want exactly %q", got, body)
	}
}

func TestExtractSkipsInvalidFence(t *testing.T) {
	raw := "```json\n{not json}\n```\n```json\n{\"past\": []}\n```"
	got, strategy, ok := ExtractWithStrategy(raw)
	if !ok {
		t.Fatal("expected second fenced block to be found")
	}
	if got != `{"past": []}` || strategy != "fenced" {
		t.Errorf("got %q via %q", got, strategy)
	}
}

func TestExtractReturnsObjectsOnly(t *testing.T) {
	got, strategy, ok := ExtractWithStrategy(`[{"past":[]}]`)
	if !ok {
		t.Fatal("expected the wrapped object to be found")
	}
	if got != `{"past":[]}` || strategy != "braces" {
		t.Errorf("got %q via %q, want the inner object via braces", got, strategy)
	}

	if _, ok := Extract(`["a", "b"]`); ok {
		t.Error("an array without an object must not be extracted")
	}
	if _, ok := Extract(`42`); ok {
		t.Error("a scalar must not be extracted")
	}
}
