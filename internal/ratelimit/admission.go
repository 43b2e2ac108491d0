package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// Which limit tier turned a request away.
type Reason string

const (
	ReasonGlobal Reason = "GLOBAL"
	ReasonIP     Reason = "IP"
)

// Endpoint sensitivity class. Strict endpoints get a tighter budget over a
// longer window.
type Class string

const (
	ClassNormal Class = "normal"
	ClassStrict Class = "strict"
)

// Paths that get the strict per-IP budget.
var strictPathSubstrings = []string{
	"/broker",
	"/auth/request-code",
	"/auth/verify-code",
	"/trailer/new",
	"/driver/arrival",
}

type Decision struct {
	Allowed    bool
	Reason     Reason
	Message    string
	RetryAfter time.Duration
}

type AdmissionConfig struct {
	GlobalRequestsPerMinute   int
	IPRequestsPerMinute       int
	StrictRequestsPerInterval int
	StrictInterval            time.Duration
	BucketMaxAge              time.Duration
	BucketCleanupInterval     time.Duration
}

// Two-tier admission control: a process-wide global bucket protects the
// whole service, then a per-(IP, class) bucket protects against any single
// client. Both tiers are in-memory and process-local.
type Admission struct {
	cfg      AdmissionConfig
	global   *TokenBucket
	registry *Registry
}

func NewAdmission(cfg AdmissionConfig) *Admission {
	return &Admission{
		cfg:      cfg,
		global:   NewTokenBucket(cfg.GlobalRequestsPerMinute, time.Minute),
		registry: NewRegistry(cfg.BucketMaxAge, cfg.BucketCleanupInterval),
	}
}

// Starts the registry's background sweep.
func (a *Admission) Start() {
	a.registry.Start()
}

func (a *Admission) Stop() {
	a.registry.Stop()
}

// Decides whether a request from clientIP to path may proceed. The global
// tier is consulted first; a global deny short-circuits before the per-key
// bucket is even looked up, so that bucket is never decremented.
func (a *Admission) Admit(clientIP, path string) Decision {
	if !a.global.TryConsume(1) {
		return Decision{
			Reason:     ReasonGlobal,
			Message:    "Server is experiencing high load. Please try again later.",
			RetryAfter: a.global.RetryAfter(),
		}
	}

	class := ClassifyPath(path)
	bucket := a.registry.GetOrCreate(bucketKey(clientIP, class), func() *TokenBucket {
		return a.newBucketFor(class)
	})

	if !bucket.TryConsume(1) {
		return Decision{
			Reason:     ReasonIP,
			Message:    fmt.Sprintf("Rate limit exceeded for your IP: %s. Please try again later.", clientIP),
			RetryAfter: bucket.RetryAfter(),
		}
	}

	return Decision{Allowed: true}
}

// Buckets returns the live per-key bucket count, for the admin surface.
func (a *Admission) Buckets() int {
	return a.registry.Len()
}

func (a *Admission) newBucketFor(class Class) *TokenBucket {
	if class == ClassStrict {
		return NewTokenBucket(a.cfg.StrictRequestsPerInterval, a.cfg.StrictInterval)
	}
	return NewTokenBucket(a.cfg.IPRequestsPerMinute, time.Minute)
}

// Resolves a request path to its traffic class.
func ClassifyPath(path string) Class {
	for _, s := range strictPathSubstrings {
		if strings.Contains(path, s) {
			return ClassStrict
		}
	}
	return ClassNormal
}

func bucketKey(clientIP string, class Class) string {
	return clientIP + "_" + string(class)
}
