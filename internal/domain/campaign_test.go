package domain

import "testing"

func TestChannelFromUTMSource(t *testing.T) {
	tests := []struct {
		source string
		want   Channel
	}{
		{"linkedin", ChannelLinkedIn},
		{"LinkedIn Ads", ChannelLinkedIn},
		{"facebook", ChannelFacebook},
		{"fb_paid", ChannelFacebook},
		{"google", ChannelGoogle},
		{"Google Ads", ChannelGoogle},
		{"email", ChannelEmail},
		{"newsletter email", ChannelEmail},
		{"direct", ChannelOrganic},
		{"organic", ChannelOrganic},
		{"organic search", ChannelOther},
		{"twitter", ChannelOther},
		{"", ChannelOther},
	}
	for _, tt := range tests {
		if got := ChannelFromUTMSource(tt.source); got != tt.want {
			t.Errorf("ChannelFromUTMSource(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestTargetFieldKey(t *testing.T) {
	tests := []struct {
		field TargetField
		want  string
	}{
		{FieldEmail, "email"},
		{FieldCampaignName, "campaignName"},
		{FieldUTMSource, "utmSource"},
		{FieldRegistrationDate, "registrationDate"},
	}
	for _, tt := range tests {
		if got := tt.field.Key(); got != tt.want {
			t.Errorf("%q.Key() = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestTargetFieldValid(t *testing.T) {
	if !FieldSkip.Valid() {
		t.Error("skip must be a valid mapping target")
	}
	if TargetField("bogus").Valid() {
		t.Error("unknown fields must be invalid")
	}
}
