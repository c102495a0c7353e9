package bluesky

import (
	"regexp"

	appbsky "github.com/bluesky-social/indigo/api/bsky"
)

var urlRe = regexp.MustCompile(`https?://[^\s]+`)

// linkFacets builds link facets for every URL in text. Facet indices are
// byte offsets into the UTF-8 text, which matters because reply texts start
// with multi-byte emoji markers.
func linkFacets(text string) []*appbsky.RichtextFacet {
	locs := urlRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	facets := make([]*appbsky.RichtextFacet, 0, len(locs))
	for _, loc := range locs {
		facets = append(facets, &appbsky.RichtextFacet{
			Index: &appbsky.RichtextFacet_ByteSlice{
				ByteStart: int64(loc[0]),
				ByteEnd:   int64(loc[1]),
			},
			Features: []*appbsky.RichtextFacet_Features_Elem{
				{
					RichtextFacet_Link: &appbsky.RichtextFacet_Link{
						LexiconTypeID: "app.bsky.richtext.facet#link",
						Uri:           text[loc[0]:loc[1]],
					},
				},
			},
		})
	}
	return facets
}
