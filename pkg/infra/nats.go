package infra

import (
	"errors"
	"time"

	"github.com/fystack/stacks-connector/pkg/common/config"
	"github.com/fystack/stacks-connector/pkg/common/logger"
	"github.com/fystack/stacks-connector/pkg/common/stringutils"
	"github.com/nats-io/nats.go"
)

// GetNATSConnection dials NATS. TLS is layered on when tls.ca_cert is set;
// production requires it.
func GetNATSConnection(natsConfig config.NatsConfig, production bool) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1), // retry forever
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("Disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed!")
		}),
		nats.ErrorHandler(NatsErrHandler),
	}

	natsURL := natsConfig.URL
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}
	if natsConfig.Username != "" {
		opts = append(opts, nats.UserInfo(natsConfig.Username, natsConfig.Password))
	}

	tlsCfg := natsConfig.TLS
	if tlsCfg.CACert == "" {
		if production {
			return nil, errors.New("nats: tls.ca_cert is required in production")
		}
		return nats.Connect(natsURL, opts...)
	}

	opts = append(opts, nats.RootCAs(stringutils.ExpandTildePath(tlsCfg.CACert)))
	if tlsCfg.ClientCert != "" {
		opts = append(opts, nats.ClientCert(
			stringutils.ExpandTildePath(tlsCfg.ClientCert),
			stringutils.ExpandTildePath(tlsCfg.ClientKey),
		))
	}
	return nats.Connect(natsURL, opts...)
}

func NatsErrHandler(nc *nats.Conn, sub *nats.Subscription, natsErr error) {
	logger.Error("NATS Error", "error", natsErr)
	if errors.Is(natsErr, nats.ErrSlowConsumer) && sub != nil {
		pendingMsgs, _, err := sub.Pending()
		if err != nil {
			logger.Error("Error getting pending messages", "error", err)
			return
		}
		logger.Error("Falling behind with pending messages on subject", "pending", pendingMsgs, "subject", sub.Subject)
	}
}
