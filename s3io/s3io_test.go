package s3io

import "testing"

func TestIsURI(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"s3://bucket/key.png", true},
		{"/tmp/left.png", false},
		{"left.png", false},
		{"s3://", false},
	}
	for _, c := range cases {
		if got := IsURI(c.path); got != c.want {
			t.Errorf("IsURI(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestParseURI(t *testing.T) {
	bucket, key, err := ParseURI("s3://my-bucket/pairs/left.png")
	if err != nil {
		t.Fatalf("ParseURI: %v", err)
	}
	if bucket != "my-bucket" || key != "pairs/left.png" {
		t.Errorf("ParseURI = (%q, %q), want (%q, %q)", bucket, key, "my-bucket", "pairs/left.png")
	}
}

func TestParseURIRejectsMalformed(t *testing.T) {
	cases := []string{
		"not-an-s3-uri",
		"s3://bucket-only",
		"s3:///missing-bucket",
	}
	for _, in := range cases {
		if _, _, err := ParseURI(in); err == nil {
			t.Errorf("ParseURI(%q) should have failed", in)
		}
	}
}

func TestSanitizeKey(t *testing.T) {
	if got := sanitizeKey("pairs/left.png"); got != "pairs_left.png" {
		t.Errorf("sanitizeKey = %q, want %q", got, "pairs_left.png")
	}
}
