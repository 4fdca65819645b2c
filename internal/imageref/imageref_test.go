package imageref_test

import (
	"net/url"
	"strings"
	"testing"

	"intranet/internal/imageref"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		primary  string
		fallback string
		want     string
	}{
		{"absolute url", "http://x/y.png", "", "http://x/y.png"},
		{"https url", "https://contoso.sharepoint.com/SiteAssets/a b.png", "", "https://contoso.sharepoint.com/SiteAssets/a b.png"},
		{"data uri", "data:image/png;base64,AAAA", "", "data:image/png;base64,AAAA"},
		{"server relative", "/sites/intranet/SiteAssets/hero.png", "", "/sites/intranet/SiteAssets/hero.png"},
		{"bundled with space", "My Photo.jpg", "", "/assets/images/My%20Photo.jpg"},
		{"bundled with hash", "Q#3 report.png", "", "/assets/images/Q%233%20report.png"},
		{"redundant prefix", "assets/images/Team.png", "", "/assets/images/Team.png"},
		{"redundant prefix mixed case", "Public/Assets/Images/Team.png", "", "/assets/images/Team.png"},
		{"reserved characters", "R&D=+1 @home:$5 (v2)!.png", "", "/assets/images/R%26D%3D%2B1%20%40home%3A%245%20(v2)!.png"},
		{"nested segments", "icons/New Hire.svg", "", "/assets/images/icons/New%20Hire.svg"},
		{"fallback used", "", "Office Building.jpg", "/assets/images/Office%20Building.jpg"},
		{"whitespace primary", "   ", "logo.png", "/assets/images/logo.png"},
		{"fallback server relative", "", "/assets/images/App Designed for Collaboration.png", "/assets/images/App Designed for Collaboration.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := imageref.Resolve(tt.primary, tt.fallback)
			if got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.primary, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestResolve_Placeholder(t *testing.T) {
	got := imageref.Resolve("", "")
	if !strings.HasPrefix(got, "data:image/svg+xml,") {
		t.Fatalf("expected svg data uri, got %q", got)
	}

	svg, err := url.PathUnescape(strings.TrimPrefix(got, "data:image/svg+xml,"))
	if err != nil {
		t.Fatalf("placeholder is not valid percent-encoding: %v", err)
	}
	if !strings.Contains(svg, `fill="#03787c"`) {
		t.Errorf("expected brand color in placeholder, got %s", svg)
	}
	if !strings.Contains(svg, ">Contoso</text>") {
		t.Errorf("expected label in placeholder, got %s", svg)
	}
	if strings.Contains(got, " ") || strings.Contains(got, "#") {
		t.Errorf("placeholder must be fully encoded, got %q", got)
	}
}

func TestResolver_CustomSettings(t *testing.T) {
	r := imageref.Resolver{AssetsRoot: "/static/img/", Label: "R&D"}

	if got := r.Resolve("a b.png", ""); got != "/static/img/a%20b.png" {
		t.Errorf("unexpected asset path %q", got)
	}

	svg, err := url.PathUnescape(strings.TrimPrefix(r.Resolve("", ""), "data:image/svg+xml,"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(svg, ">R&amp;D</text>") {
		t.Errorf("expected escaped label, got %s", svg)
	}
}
