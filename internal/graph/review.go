package graph

import (
	"time"

	"github.com/studynexus/nexus/internal/metrics"
	"github.com/studynexus/nexus/internal/models"
	"github.com/studynexus/nexus/internal/srs"
)

// MasteredThreshold is the stored mastery at which a node counts as mastered.
const MasteredThreshold = 0.7

// Review records a review outcome for a node and returns the updated node.
func (s *Store) Review(id string, quality int) (models.Node, error) {
	now := s.now()

	s.mu.Lock()

	n, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return models.Node{}, models.ErrNodeNotFound
	}

	next, err := srs.Review(n.SRS, quality, now)
	if err != nil {
		s.mu.Unlock()
		return models.Node{}, err
	}

	n.SRS = next
	out := n.Clone()
	s.mu.Unlock()

	outcome := "pass"
	if quality < srs.PassQuality {
		outcome = "fail"
	}

	metrics.ReviewsTotal.WithLabelValues(outcome).Inc()

	s.events.Publish(EventNodeReviewed, ReviewEvent{
		NodeID:     id,
		Quality:    quality,
		Interval:   next.Interval,
		Mastery:    next.Mastery,
		NextReview: next.NextReview.Format(time.RFC3339),
	})

	return out, nil
}

func nodeSRS(n models.Node) models.SRSItem { return n.SRS }

// DueNodes returns nodes due for review, most overdue first.
func (s *Store) DueNodes() []models.Node {
	return srs.DueItems(s.ListNodes(), nodeSRS, s.now())
}

// UpcomingNodes returns nodes that become due within the next hours.
func (s *Store) UpcomingNodes(hours int) []models.Node {
	return srs.UpcomingReviews(s.ListNodes(), nodeSRS, s.now(), hours)
}

// VisibleMastery returns the decayed mastery of a node. Unknown ids yield 0.
func (s *Store) VisibleMastery(id string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return 0
	}

	return srs.Decay(n.SRS, s.now())
}

// Stats aggregates mastery and due counts over the collection.
func (s *Store) Stats() models.Stats {
	return ComputeStats(s.ListNodes(), s.now())
}

// ComputeStats aggregates mastery and due counts over nodes.
func ComputeStats(nodes []models.Node, now time.Time) models.Stats {
	var st models.Stats

	st.Total = len(nodes)

	var sum float64
	for _, n := range nodes {
		m := n.SRS.Mastery
		sum += m

		switch {
		case m >= MasteredThreshold:
			st.Mastered++
		case m > 0:
			st.Learning++
		default:
			st.New++
		}

		if srs.IsDue(n.SRS, now) {
			st.DueNow++
		}
	}

	if st.Total > 0 {
		st.AverageMastery = sum / float64(st.Total)
	}

	return st
}
