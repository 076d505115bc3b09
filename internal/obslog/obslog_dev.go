//go:build !release

package obslog

import "go.uber.org/zap"

var base = mustNewDevelopment()

func mustNewDevelopment() *zap.Logger {
	l, err := zap.NewDevelopmentConfig().Build()
	if err != nil {
		panic("obslog: failed to build development logger: " + err.Error())
	}
	return l
}
