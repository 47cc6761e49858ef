package threads

import "go.uber.org/zap"

// fatalHook terminates the process. zap's Fatal exits after writing the
// record. Tests replace it to observe fatal errors.
var fatalHook = func(log *zap.Logger, err error) {
	log.Fatal("threads: aborting", zap.Error(err))
}

// fatal reports an unrecoverable spawn or join failure. Workers that are
// already running cannot be abandoned safely, so there is no recovery path;
// fatal never returns.
func fatal(st *state, err error) {
	fatalHook(st.logger, err)
	panic(err)
}
