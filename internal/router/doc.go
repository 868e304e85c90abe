// Package router implements inbound dispatch for the realtime connection.
//
// The Router:
//   - Answers bare and structured keep-alive pings
//   - Drops malformed frames without surfacing them
//   - Records every other envelope as the most recent message
//   - Prepends notifications to the bounded notification list
//   - Replaces the leaderboard snapshot on leaderboard_data
//   - Invalidates cached task queries on task
//
// Handle is called from the connection manager's event loop, so frames are
// processed one at a time in arrival order.
package router
