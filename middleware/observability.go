package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/meinhoongagan/vetcare-app/metrics"
)

// RequestLogger writes one structured line per request.
func RequestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if caller := CallerFrom(c); caller.UserID != 0 {
			fields = append(fields, zap.Uint("user_id", caller.UserID))
		}
		if err != nil {
			log.Error("request failed", append(fields, zap.Error(err))...)
			return err
		}
		if cause, ok := c.Locals("error").(error); ok {
			log.Error("request failed", append(fields, zap.Error(cause))...)
			return nil
		}
		log.Info("request", fields...)
		return nil
	}
}

// Metrics records request counts and latency keyed by the matched route pattern.
func Metrics(m *metrics.Collector) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.InFlightGauge.Inc()
		defer m.InFlightGauge.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		path := c.Route().Path
		labels := []string{c.Method(), path, strconv.Itoa(status)}
		m.RequestsTotal.WithLabelValues(labels...).Inc()
		m.RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}
