package sync

import "log"

// NewPuller returns a Service that reconciles remote changes into the
// local store: source = remote, destination = local.
//
// Example:
//
//	state := sync.OpenState(profile.StatePath(), logger)
//	tracker := sync.OpenTracker(profile.ConflictsPath(), logger)
//	puller := sync.NewPuller(local.Endpoint(), client.Endpoint(), state, tracker, opts, logger)
//	result, err := puller.Run(ctx)
func NewPuller(local, remote Endpoint, state *State, tracker *Tracker, opts Options, logger *log.Logger) *Service {
	return newService(Pull, remote, local, state, tracker, opts, logger)
}

// NewPusher returns a Service that reconciles local changes into the
// remote service: source = local, destination = remote.
func NewPusher(local, remote Endpoint, state *State, tracker *Tracker, opts Options, logger *log.Logger) *Service {
	return newService(Push, local, remote, state, tracker, opts, logger)
}
