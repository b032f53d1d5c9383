package models

// Lab is one laboratory's public content page.
//
// List-valued fields are kept as lists here; the store encodes them into
// delimited strings when persisting.
type Lab struct {
	Code        int64    `json:"lab_code"`
	Name        string   `json:"lab_name"`
	Description string   `json:"lab_description"`
	Objectives  []string `json:"lab_objectives"`
	Projects    []string `json:"lab_proyects"`
	Images      []string `json:"lab_images"`
	Video       string   `json:"lab_video"`
	Podcast     string   `json:"lab_podcast"`
}

// References returns every non-empty media reference held by the lab, keyed by kind.
func (l Lab) References() map[MediaKind][]string {
	refs := map[MediaKind][]string{}
	if len(l.Images) > 0 {
		refs[MediaImage] = append([]string(nil), l.Images...)
	}
	if l.Video != "" {
		refs[MediaVideo] = []string{l.Video}
	}
	if l.Podcast != "" {
		refs[MediaPodcast] = []string{l.Podcast}
	}
	return refs
}
