package sequence

import (
	"fmt"
	"time"
)

// ShardKey derives the counter row key for a business date. Daily granularity
// yields one row per tenant per day; hourly granularity appends the local
// wall-clock hour so concurrent order creation spreads over up to 24
// independent rows per day. The date part always comes from the business
// date, never from the raw calendar date, so pre-cutoff orders land on the
// previous day's shards.
func ShardKey(businessDate time.Time, hour int, daily bool) string {
	if daily {
		return businessDate.Format("20060102")
	}
	return fmt.Sprintf("%s%02d", businessDate.Format("20060102"), hour)
}
