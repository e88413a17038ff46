// Package metrics регистрирует счётчики Prometheus для рассылок и фоновых задач.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы попытки рассылки об обновлении курса.
const (
	OutcomeDispatched = "dispatched"
	OutcomeThrottled  = "throttled"
	OutcomeNoAudience = "no_audience"
	OutcomeFailed     = "failed"
)

var (
	// CourseNotifications число попыток рассылки по исходу.
	CourseNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lms",
		Name:      "course_notifications_total",
		Help:      "Course update notification attempts by outcome.",
	}, []string{"outcome"})

	// UsersDeactivated число пользователей, выключенных за неактивность.
	UsersDeactivated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lms",
		Name:      "users_deactivated_total",
		Help:      "Users deactivated by the inactivity sweep.",
	})

	// EmailsSent число отправленных писем по типу и результату.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lms",
		Name:      "emails_sent_total",
		Help:      "Emails handed to the mail transport by kind and result.",
	}, []string{"kind", "result"})

	// GatewayBreakerState текущее состояние автомата платёжного шлюза: 0 закрыт, 1 полуоткрыт, 2 открыт.
	GatewayBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lms",
		Name:      "payment_gateway_breaker_state",
		Help:      "Payment gateway circuit breaker state.",
	})
)
