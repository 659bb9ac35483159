package presets

import "testing"

func TestByKey(t *testing.T) {
	if _, ok := ByKey("classic"); !ok {
		t.Fatal("classic preset missing")
	}
	if _, ok := ByKey("nope"); ok {
		t.Fatal("unknown key should not resolve")
	}
}

func TestResolvePool(t *testing.T) {
	cases := []struct {
		name   string
		key    string
		custom []string
		want   string // expected first entry
	}{
		{"known key wins over custom", "fortune", []string{"mine"}, "yes"},
		{"unknown key falls back to custom", "ghost", []string{"mine"}, "mine"},
		{"nothing configured uses default pair", "", nil, "loves me"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pool := ResolvePool(tc.key, tc.custom)
			if len(pool) == 0 || pool[0] != tc.want {
				t.Fatalf("want first entry %q, got %v", tc.want, pool)
			}
		})
	}
}
