package matcher

import (
	"fmt"
	"strings"

	"jellymigrate/internal/catalog"
	"jellymigrate/internal/textutil"
)

// Title builds the search keyword for e. Composite kinds prefix their parent
// titles and index markers so the keyword is as discriminating as possible:
//
//	movie    {title} ({year})
//	show     {title}
//	season   {show} - Season {n}
//	episode  {show} - Season {n} - Episode {m} - {title} ({year})
//	artist   {title}
//	album    {artist} - {title} ({year})
//	track    {artist} - {album} - {title} ({year})
//
// A missing year drops the "({year})" suffix.
func Title(e catalog.Entity) string {
	var title string
	switch e.Kind {
	case catalog.KindMovie:
		title = withYear(e.Name, e.Year)
	case catalog.KindSeason:
		title = fmt.Sprintf("%s - Season %d", e.ParentTitle, e.Index)
	case catalog.KindEpisode:
		title = withYear(fmt.Sprintf("%s - Season %d - Episode %d - %s",
			e.GrandparentTitle, e.ParentIndex, e.Index, e.Name), e.Year)
	case catalog.KindAlbum:
		title = withYear(e.ParentTitle+" - "+e.Name, e.Year)
	case catalog.KindTrack:
		title = withYear(e.GrandparentTitle+" - "+e.ParentTitle+" - "+e.Name, e.Year)
	default:
		title = e.Name
	}
	return textutil.NormalizeTitle(title)
}

func withYear(title string, year int) string {
	if year <= 0 {
		return title
	}
	return fmt.Sprintf("%s (%d)", strings.TrimSpace(title), year)
}
