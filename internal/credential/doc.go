// Package credential owns the session token used to authenticate the
// realtime connection.
//
// The token lives in the system keyring (KeyringStore) under the
// "auth_token" key. A Source is the only writer: it persists changes and
// pushes them to the connection manager through an explicit SetCredential
// call, so there is no ambient global the manager must poll.
package credential
