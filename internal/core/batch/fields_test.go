package batch

import "testing"

func TestParseFields(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  FieldSet
	}{
		{"nil", nil, AllFields},
		{"empty", []string{}, AllFields},
		{"all named", []string{"repo_info", "releases", "latest_release"}, AllFields},
		{"unknown only", []string{"bogus"}, AllFields},
		{"single", []string{"latest_release"}, FieldSet(FieldLatestRelease)},
		{"unknown ignored", []string{"bogus", "releases"}, FieldSet(FieldReleases)},
		{"duplicates", []string{"repo_info", "repo_info"}, FieldSet(FieldRepoInfo)},
		{"case sensitive", []string{"Repo_Info"}, AllFields},
		{"pair", []string{"repo_info", "latest_release"}, FieldSet(FieldRepoInfo | FieldLatestRelease)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseFields(tt.input); got != tt.want {
				t.Errorf("ParseFields(%v) = %03b, want %03b", tt.input, got, tt.want)
			}
		})
	}
}

func TestFieldSetHas(t *testing.T) {
	set := ParseFields([]string{"releases"})
	if !set.Has(FieldReleases) {
		t.Error("expected releases in set")
	}
	if set.Has(FieldRepoInfo) || set.Has(FieldLatestRelease) {
		t.Error("unexpected fields in set")
	}

	for _, f := range []Field{FieldRepoInfo, FieldReleases, FieldLatestRelease} {
		if !AllFields.Has(f) {
			t.Errorf("AllFields missing %03b", f)
		}
	}
}
