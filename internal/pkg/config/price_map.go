package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PriceMap maps catalog video ids to Paddle price ids.
type PriceMap map[uint]string

func (p PriceMap) PriceID(videoID uint) (string, bool) {
	id, ok := p[videoID]
	return id, ok && id != ""
}

// String renders the map in the VIDEO_PRICE_MAP format, sorted by video id.
func (p PriceMap) String() string {
	ids := make([]int, 0, len(p))
	for id := range p {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d=%s", id, p[uint(id)]))
	}
	return strings.Join(parts, ",")
}

// ParsePriceMap parses "8=pri_a,9=pri_b". ":" is accepted as separator too.
func ParsePriceMap(raw string) (PriceMap, error) {
	out := PriceMap{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		sep := strings.IndexAny(entry, "=:")
		if sep <= 0 || sep == len(entry)-1 {
			return nil, fmt.Errorf("VIDEO_PRICE_MAP: malformed entry %q", entry)
		}
		id, err := strconv.ParseUint(strings.TrimSpace(entry[:sep]), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("VIDEO_PRICE_MAP: invalid video id in %q", entry)
		}
		priceID := strings.TrimSpace(entry[sep+1:])
		if priceID == "" {
			return nil, fmt.Errorf("VIDEO_PRICE_MAP: empty price id in %q", entry)
		}
		if _, dup := out[uint(id)]; dup {
			return nil, fmt.Errorf("VIDEO_PRICE_MAP: duplicate video id %d", id)
		}
		out[uint(id)] = priceID
	}
	return out, nil
}
