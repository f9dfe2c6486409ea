package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionDays,
		paymentsRecorded,
		chainTransfersSeen,
		chainTransfersDeduped,
		referralsActivated,
		streakRewards,
	)
}

var (
	subscriptionDays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_subscription_days_granted_total",
			Help: "Premium days credited, by source.",
		},
		[]string{"source"}, // payment | referral | streak
	)

	paymentsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_payments_recorded_total",
			Help: "Ledger rows written, by method and status.",
		},
		[]string{"method", "status"},
	)

	chainTransfersSeen = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tutor_chain_transfers_seen_total",
			Help: "Incoming wallet transfers observed by the reconciler.",
		},
	)

	chainTransfersDeduped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tutor_chain_transfers_deduped_total",
			Help: "Transfers skipped because the hash was already processed.",
		},
	)

	referralsActivated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tutor_referrals_activated_total",
			Help: "Successful one-time referral activations.",
		},
	)

	streakRewards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_streak_rewards_total",
			Help: "Streak milestone rewards granted, by milestone day count.",
		},
		[]string{"milestone"},
	)
)

func ObserveSubscriptionDays(source string, days int) {
	subscriptionDays.WithLabelValues(source).Add(float64(days))
}
func ObservePayment(method, status string) { paymentsRecorded.WithLabelValues(method, status).Inc() }
func ObserveChainTransferSeen()            { chainTransfersSeen.Inc() }
func ObserveChainTransferDeduped()         { chainTransfersDeduped.Inc() }
func ObserveReferralActivated()            { referralsActivated.Inc() }
func ObserveStreakReward(milestone string) { streakRewards.WithLabelValues(milestone).Inc() }
