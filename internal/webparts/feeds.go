// Package webparts serves the read-only content feeds of the intranet home
// page: news, the news hub carousel, events, hero tiles and trending items.
// Every feed is cached and every image reference is resolved before it is
// returned.
package webparts

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"intranet/internal/imageref"
	"intranet/internal/listclient"
	"intranet/internal/querycache"
	"intranet/internal/result"
	"intranet/internal/service"
)

// Feed defaults.
const (
	DefaultNewsListMax    = 5
	DefaultNewsMax        = 4
	DefaultCarouselMax    = 8
	DefaultHeroMax        = 5
	DefaultTrendingMax    = 4
	EventsTop             = 10
	EventsShown           = 4
	HeroTilesShown        = 4
	DefaultGetInvolvedTag = "Get Involved"
	DefaultHeroLayer      = "primary"
	MainTileType          = "Main"
)

const collaborationImage = "App Designed for Collaboration.png"

var eventImages = []string{
	collaborationImage,
	"Building a responsible ecosystem.jpg",
	"Communicating Product Value.jpg",
	"Student mentorship opportunity.jpg",
}

// TrendingCard is a trending item prepared for display.
type TrendingCard struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ImageURL string `json:"imageUrl"`
	Icon     string `json:"icon"`
}

// HeroLayout is the hero section: one main tile and up to four others.
type HeroLayout struct {
	Main  *service.Hero  `json:"main,omitempty"`
	Tiles []service.Hero `json:"tiles"`
}

// Feeds reads the content lists through a shared cache.
type Feeds struct {
	news     *listclient.Client
	hub      *listclient.Client
	events   *listclient.Client
	hero     *listclient.Client
	trending *listclient.Client
	cache    *querycache.Cache
	images   imageref.Resolver
	logger   *zap.Logger
}

// New creates Feeds reading from t.
func New(t service.Transport, cache *querycache.Cache, images imageref.Resolver, logger *zap.Logger) *Feeds {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feeds{
		news:     listclient.NewNews(t, logger),
		hub:      listclient.NewNewsHub(t, logger),
		events:   listclient.NewEvents(t, logger),
		hero:     listclient.NewHero(t, logger),
		trending: listclient.NewTrending(t, logger),
		cache:    cache,
		images:   images,
		logger:   logger,
	}
}

// NewsList returns the newest news items. A failed read yields an empty
// list.
func (f *Feeds) NewsList(ctx context.Context, limit int) ([]service.News, error) {
	limit = orDefault(limit, DefaultNewsListMax)
	key := querycache.Key{querycache.NamespaceNewsList, limit}
	return query(ctx, f, key, func(ctx context.Context) ([]service.News, error) {
		items, err := read[service.News](ctx, f.news, service.ListQueryOptions{
			OrderBy: []string{"Created desc"},
			Top:     limit,
		})
		items, err = degrade(f.logger, "newsList", items, err)
		for i := range items {
			items[i].ImageURL = f.resolveIfSet(items[i].ImageURL, "")
		}
		return items, err
	})
}

// NewsByCategory returns the latest published news, optionally limited to
// one category. Read failures are returned.
func (f *Feeds) NewsByCategory(ctx context.Context, category string, limit int) ([]service.News, error) {
	limit = orDefault(limit, DefaultNewsMax)
	key := querycache.Key{querycache.NamespaceNews, category, limit}
	return query(ctx, f, key, func(ctx context.Context) ([]service.News, error) {
		opts := service.ListQueryOptions{OrderBy: []string{"PublishDate desc"}, Top: limit}
		if category != "" {
			opts.Filter = service.ODataEq("Category/Title", category)
		}
		items, err := read[service.News](ctx, f.news, opts)
		for i := range items {
			items[i].ImageURL = f.resolveIfSet(items[i].ImageURL, "")
		}
		return items, err
	})
}

// GetInvolved returns the newest news item tagged with colorTag, or nil.
func (f *Feeds) GetInvolved(ctx context.Context, colorTag string) (*service.News, error) {
	if colorTag == "" {
		colorTag = DefaultGetInvolvedTag
	}
	key := querycache.Key{querycache.NamespaceGetInvolved, colorTag}
	items, err := query(ctx, f, key, func(ctx context.Context) ([]service.News, error) {
		items, err := read[service.News](ctx, f.news, service.ListQueryOptions{
			Filter:  service.ODataEq("OData__ColorTag", colorTag),
			OrderBy: []string{"Created desc"},
			Top:     1,
		})
		items, err = degrade(f.logger, "getInvolved", items, err)
		for i := range items {
			items[i].ImageURL = f.resolveIfSet(items[i].ImageURL, "Get Involved - make a difference.jpg")
		}
		return items, err
	})
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

// Carousel returns the most viewed news hub items.
func (f *Feeds) Carousel(ctx context.Context, limit int) ([]service.NewsHub, error) {
	limit = orDefault(limit, DefaultCarouselMax)
	key := querycache.Key{querycache.NamespaceCarousel, limit}
	return query(ctx, f, key, func(ctx context.Context) ([]service.NewsHub, error) {
		items, err := read[service.NewsHub](ctx, f.hub, service.ListQueryOptions{
			OrderBy: []string{"ViewCount desc", "Created desc"},
			Top:     limit,
		})
		items, err = degrade(f.logger, "newsCarousel", items, err)
		for i := range items {
			items[i].ImageURL = f.resolveIfSet(items[i].ImageURL, "Why Story Telling Matters.png")
		}
		return items, err
	})
}

// Events returns the next events in date order. Only the first EventsShown
// are displayed; see Upcoming.
func (f *Feeds) Events(ctx context.Context) ([]service.Event, error) {
	key := querycache.Key{querycache.NamespaceEvents}
	return query(ctx, f, key, func(ctx context.Context) ([]service.Event, error) {
		items, err := read[service.Event](ctx, f.events, service.ListQueryOptions{
			OrderBy: []string{"EventDate asc"},
			Top:     EventsTop,
		})
		items, err = degrade(f.logger, "events", items, err)
		for i := range items {
			items[i].ImageURL = f.images.Resolve(items[i].ImageURL, eventImages[i%len(eventImages)])
		}
		return items, err
	})
}

// Upcoming returns the events that are displayed.
func Upcoming(events []service.Event) []service.Event {
	if len(events) > EventsShown {
		return events[:EventsShown]
	}
	return events
}

// Hero returns the hero section. The main tile is the first tile of type
// Main, else the first tile.
func (f *Feeds) Hero(ctx context.Context, limit int) (HeroLayout, error) {
	limit = orDefault(limit, DefaultHeroMax)
	key := querycache.Key{querycache.NamespaceHero, limit}
	items, err := query(ctx, f, key, func(ctx context.Context) ([]service.Hero, error) {
		items, err := read[service.Hero](ctx, f.hero, service.ListQueryOptions{
			OrderBy: []string{"TileType asc", "Created desc"},
			Top:     limit,
		})
		return degrade(f.logger, "hero-content", items, err)
	})
	if err != nil {
		return HeroLayout{Tiles: []service.Hero{}}, err
	}
	return f.heroLayout(items), nil
}

func (f *Feeds) heroLayout(items []service.Hero) HeroLayout {
	layout := HeroLayout{Tiles: []service.Hero{}}
	if len(items) == 0 {
		return layout
	}
	main := items[0]
	for _, it := range items {
		if it.TileType == MainTileType {
			main = it
			break
		}
	}
	main.ImageURL = f.images.Resolve(main.ImageURL, "New Chief Marketing Office.jpg")
	layout.Main = &main

	for _, it := range items {
		if it.ID == main.ID {
			continue
		}
		if len(layout.Tiles) == HeroTilesShown {
			break
		}
		fallback := "Open Door Policy.jpg"
		if len(layout.Tiles) >= 2 {
			fallback = "Singapore Building Update.jpg"
		}
		it.ImageURL = f.images.Resolve(it.ImageURL, fallback)
		layout.Tiles = append(layout.Tiles, it)
	}
	return layout
}

// HeroLayer returns the newest hero item of tileType, or nil. Read failures
// are returned.
func (f *Feeds) HeroLayer(ctx context.Context, tileType string) (*service.Hero, error) {
	if tileType == "" {
		tileType = DefaultHeroLayer
	}
	key := querycache.Key{querycache.NamespaceHeroLayers, tileType}
	items, err := query(ctx, f, key, func(ctx context.Context) ([]service.Hero, error) {
		items, err := read[service.Hero](ctx, f.hero, service.ListQueryOptions{
			Filter:  service.ODataEq("TileType", tileType),
			OrderBy: []string{"Created desc"},
		})
		for i := range items {
			items[i].ImageURL = f.images.Resolve(items[i].ImageURL, collaborationImage)
		}
		return items, err
	})
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

// Trending returns the top trending items as cards. A failed read yields
// an empty list.
func (f *Feeds) Trending(ctx context.Context, limit int) ([]TrendingCard, error) {
	limit = orDefault(limit, DefaultTrendingMax)
	key := querycache.Key{querycache.NamespaceTrending, limit}
	return query(ctx, f, key, func(ctx context.Context) ([]TrendingCard, error) {
		items, err := read[service.Trending](ctx, f.trending, service.ListQueryOptions{
			OrderBy: []string{"TrendingScore desc"},
			Top:     limit,
		})
		items, err = degrade(f.logger, "trending", items, err)
		return f.trendingCards(items), err
	})
}

func (f *Feeds) trendingCards(items []service.Trending) []TrendingCard {
	cards := make([]TrendingCard, 0, len(items))
	for i, it := range items {
		id := it.ID.String()
		if id == "" {
			id = strconv.Itoa(i)
		}
		cards = append(cards, TrendingCard{
			ID:       id,
			Title:    it.Title,
			Subtitle: "Trending score: " + strconv.FormatFloat(it.TrendingScore, 'f', -1, 64),
			ImageURL: f.images.Resolve(it.ImageURL, collaborationImage),
			Icon:     "document",
		})
	}
	return cards
}

// degrade logs a failed read and substitutes an empty list.
func degrade[T any](logger *zap.Logger, feed string, items []T, err error) ([]T, error) {
	if err != nil {
		logger.Warn("feed unavailable", zap.String("feed", feed), zap.Error(err))
		return []T{}, nil
	}
	return items, nil
}

func (f *Feeds) resolveIfSet(ref, fallback string) string {
	if ref == "" {
		return ""
	}
	return f.images.Resolve(ref, fallback)
}

func query[T any](ctx context.Context, f *Feeds, key querycache.Key, fetch querycache.Fetcher[T]) (T, error) {
	st := querycache.Query(ctx, f.cache, key, fetch)
	if st.Err != nil && !st.HasData {
		return st.Data, st.Err
	}
	return st.Data, nil
}

func read[T any](ctx context.Context, c *listclient.Client, opts service.ListQueryOptions) ([]T, error) {
	raw, err := c.GetAll(ctx, &opts)
	if err != nil {
		return nil, err
	}
	r := result.Normalize[[]T](raw)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if r.Result == nil {
		return []T{}, nil
	}
	return r.Result, nil
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
