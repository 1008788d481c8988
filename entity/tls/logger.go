package tls

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "tls")
