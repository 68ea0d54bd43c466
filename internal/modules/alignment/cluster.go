package alignment

import (
	"math"
	"sort"

	"github.com/virachai/vision-iq/internal/domain"
)

// GroupByMood partitions a scene's ranked matches into mood-coherent
// clusters. Single-pass greedy walk: the highest-scoring unassigned match
// seeds a cluster and absorbs every remaining unassigned match whose
// mood temperature lies within temperatureBand of the seed's. Every match
// lands in exactly one cluster; membership depends on the documented
// highest-score-first seed order.
func GroupByMood(matches []domain.ImageMatch) []domain.Cluster {
	if len(matches) == 0 {
		return []domain.Cluster{}
	}

	ranked := make([]domain.ImageMatch, len(matches))
	copy(ranked, matches)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchScore > ranked[j].MatchScore
	})

	assigned := make([]bool, len(ranked))
	clusters := make([]domain.Cluster, 0, 2)

	for i := range ranked {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		seedTemp := moodTemp(ranked[i].Metadata.MoodDNA)
		cluster := domain.Cluster{Matches: []domain.ImageMatch{ranked[i]}}

		for j := i + 1; j < len(ranked); j++ {
			if assigned[j] {
				continue
			}
			if math.Abs(moodTemp(ranked[j].Metadata.MoodDNA)-seedTemp) <= temperatureBand {
				assigned[j] = true
				cluster.Matches = append(cluster.Matches, ranked[j])
			}
		}
		clusters = append(clusters, cluster)
	}

	return clusters
}

// SelectBest picks the cluster that best continues the running mood
// context. Cluster score = mean match score, plus a continuity bonus of
// up to 0.3 that decays linearly with temperature distance from the
// context mood. Ties keep the first-seen cluster, i.e. the one seeded by
// the higher-ranked match. An empty cluster list yields an empty cluster.
func SelectBest(clusters []domain.Cluster, contextMood *domain.MoodDNA) domain.Cluster {
	best := domain.Cluster{}
	bestScore := math.Inf(-1)

	for _, c := range clusters {
		if c.Empty() {
			continue
		}
		score := avgMatchScore(c)
		if contextMood != nil {
			delta := math.Abs(clusterAvgTemp(c) - moodTemp(*contextMood))
			score += math.Max(0, 0.3*(1-delta/contextTempSpan))
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	return best
}

func avgMatchScore(c domain.Cluster) float64 {
	sum := 0.0
	for _, m := range c.Matches {
		sum += m.MatchScore
	}
	return sum / float64(len(c.Matches))
}

func clusterAvgTemp(c domain.Cluster) float64 {
	sum := 0.0
	for _, m := range c.Matches {
		sum += moodTemp(m.Metadata.MoodDNA)
	}
	return sum / float64(len(c.Matches))
}
