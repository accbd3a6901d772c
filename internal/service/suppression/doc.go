// Package suppression implements the suppression-list business logic: adding
// entries from feedback signals, answering "may I email this address?" for
// senders, and the admin list/remove operations.
//
// Addresses are hashed before they reach the repository; nothing below this
// package ever sees a raw email address.
package suppression
