// Package cli provides the delegsync command-line host.
//
// It wires configuration, the local store, the remote backend and the sync
// services behind a cobra command tree:
//
//   - pull, push, sync: run one cycle and print its report
//   - status: watermark, local row counts and open conflicts
//   - conflicts list / conflicts resolve: manual conflict review
//
// Execute builds the tree and returns the process exit code.
package cli
