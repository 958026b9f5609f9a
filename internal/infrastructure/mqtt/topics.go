package mqtt

import (
	"fmt"
	"strings"
)

// Topic roots.
const (
	TopicPrefix        = "autofill"
	TopicPrefixRun     = "autofill/run"
	TopicPrefixCommand = "autofill/command"
	TopicPrefixSystem  = "autofill/system"
)

// Topics provides builders for Autofill MQTT topics.
//
//	mqtt.Topics{}.RunEvent("shop-42", "finished")
//	// Returns: "autofill/run/shop-42/finished"
type Topics struct{}

// RunEvent returns the topic a run event for websiteID is published on.
func (Topics) RunEvent(websiteID, event string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixRun, websiteID, event)
}

// RunCommand returns the topic that requests a replay of websiteID.
func (Topics) RunCommand(websiteID string) string {
	return fmt.Sprintf("%s/run/%s", TopicPrefixCommand, websiteID)
}

// RunCommandAck returns the topic a run command's acceptance or
// rejection is published on. It sits one level below RunCommand so the
// AllRunCommands wildcard does not match it.
func (Topics) RunCommandAck(websiteID string) string {
	return fmt.Sprintf("%s/run/%s/ack", TopicPrefixCommand, websiteID)
}

// SystemStatus returns the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllRunCommands matches run requests for any website.
func (Topics) AllRunCommands() string {
	return TopicPrefixCommand + "/run/+"
}

// ParseRunCommand extracts the website ID from a run command topic.
func (Topics) ParseRunCommand(topic string) (websiteID string, ok bool) {
	prefix := TopicPrefixCommand + "/run/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	websiteID = strings.TrimPrefix(topic, prefix)
	if websiteID == "" || strings.Contains(websiteID, "/") {
		return "", false
	}
	return websiteID, true
}
