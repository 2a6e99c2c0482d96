package library

import (
	"sort"
	"strings"

	"github.com/diamondburned/chika/internal/catalog"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// Search returns the songs whose title or artist contains the query, case
// insensitively, followed by songs that only match fuzzily ranked by
// distance. A blank query returns nothing.
func Search(db *catalog.Database, query string) []*catalog.Song {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	lower := strings.ToLower(query)
	songs := db.Songs()

	exact, rest := lo.FilterReject(songs, func(song *catalog.Song, _ int) bool {
		return strings.Contains(strings.ToLower(song.Title), lower) ||
			strings.Contains(strings.ToLower(song.Artist), lower)
	})

	type ranked struct {
		song *catalog.Song
		rank int
	}

	var fuzzed []ranked
	for _, song := range rest {
		if rank := fuzzyRank(query, song); rank >= 0 {
			fuzzed = append(fuzzed, ranked{song, rank})
		}
	}

	sort.SliceStable(fuzzed, func(i, j int) bool {
		return fuzzed[i].rank < fuzzed[j].rank
	})

	for _, f := range fuzzed {
		exact = append(exact, f.song)
	}

	return exact
}

func fuzzyRank(query string, song *catalog.Song) int {
	best := -1
	for _, target := range []string{song.Title, song.Artist, song.String()} {
		rank := fuzzy.RankMatchFold(query, target)
		if rank >= 0 && (best < 0 || rank < best) {
			best = rank
		}
	}
	return best
}
