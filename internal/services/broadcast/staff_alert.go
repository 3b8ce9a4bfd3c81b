package broadcast

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	dwh "github.com/nat-echlin/dwhooks"
)

const staffAlertColour = 0xF59E0B

// StaffAlert posts a broadcast report to the operators' own webhook.
type StaffAlert struct {
	url      string
	username string
}

func NewStaffAlert(url, username string) *StaffAlert {
	return &StaffAlert{url: url, username: username}
}

func (a *StaffAlert) Alert(title string, s Summary) error {
	emb := dwh.NewEmbed()
	emb.SetTitle("📣 Broadcast finished")
	emb.SetDescription(title)
	emb.SetColour(staffAlertColour)
	emb.SetTimestamp(time.Now().Unix())
	emb.AddField("Sent", strconv.Itoa(s.Sent), true)
	emb.AddField("Failed", strconv.Itoa(s.Failed), true)

	msg := dwh.NewMessage("")
	msg.SetUsername(a.username)
	msg.AddEmbed(emb)

	status, err := dwh.NewWebhook(a.url).Send(msg)
	if err != nil {
		return fmt.Errorf("send staff alert: %w", err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return fmt.Errorf("staff alert: bad status %d", status)
	}
	return nil
}
