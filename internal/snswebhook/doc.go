// Package snswebhook ingests SES delivery-feedback callbacks delivered over
// SNS and turns bounce/complaint events into suppression-list writes.
//
// The pipeline for one request: parse the SNS envelope, apply the topic
// allow-list, verify the SNS signature against the published certificate
// (when enabled), then dispatch by message type. Bounce and complaint
// notifications produce one suppression entry per affected recipient;
// subscription confirmations are optionally auto-confirmed; everything else
// is logged and dropped.
package snswebhook
