package metrics

import (
	"context"
	"time"

	"media-indexer/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats(ctx context.Context) (Stats, error)
}

// Stats holds the current store totals
type Stats struct {
	LiveFiles         int            `json:"liveFiles"`
	DeletedFiles      int            `json:"deletedFiles"`
	MediaItemsByType  map[string]int `json:"mediaItemsByType"`
	PendingThumbnails int            `json:"pendingThumbnails"`
	ManagedTags       int            `json:"managedTags"`
	DerivedTags       int            `json:"derivedTags"`
	PathLabels        int            `json:"pathLabels"`
	OpenConnections   int            `json:"openConnections"`
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	done          chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.done
}

func (c *Collector) collectLoop() {
	defer close(c.done)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := c.statsProvider.GetStats(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	apply(stats)

	logging.Debug("Metrics collected: files=%d, deleted=%d, pending_thumbnails=%d, labels=%d",
		stats.LiveFiles, stats.DeletedFiles, stats.PendingThumbnails, stats.PathLabels)
}

func apply(stats Stats) {
	StoreFileEntries.WithLabelValues("live").Set(float64(stats.LiveFiles))
	StoreFileEntries.WithLabelValues("deleted").Set(float64(stats.DeletedFiles))

	StoreMediaItems.Reset()
	for typ, n := range stats.MediaItemsByType {
		StoreMediaItems.WithLabelValues(typ).Set(float64(n))
	}

	StorePendingThumbnails.Set(float64(stats.PendingThumbnails))
	StoreTags.WithLabelValues("managed").Set(float64(stats.ManagedTags))
	StoreTags.WithLabelValues("derived").Set(float64(stats.DerivedTags))
	StorePathLabels.Set(float64(stats.PathLabels))
	DBConnectionsOpen.Set(float64(stats.OpenConnections))
}
