package party_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/raidline/internal/party"
	"github.com/zjrosen/raidline/internal/timewindow"
)

var testDurations = party.Durations{
	StandardIncubation:  60 * time.Minute,
	StandardActive:      45 * time.Minute,
	ExclusiveIncubation: 48 * time.Hour,
	ExclusiveActive:     45 * time.Minute,
	TrainLeadtime:       3 * 24 * time.Hour,
}

var testLayouts = timewindow.CompileLayouts(timewindow.DefaultFormats)

func newTestParty() *party.Party {
	return party.New("chan-1", party.KindMeetup, party.Options{}, testDurations, testLayouts)
}

func TestNew_StartsWithDefaultGroup(t *testing.T) {
	p := newTestParty()

	summaries := p.GroupSummaries()
	require.Len(t, summaries, 1)
	require.Equal(t, party.DefaultGroupID, summaries[0].ID)
	require.Equal(t, 0, summaries[0].Count)
}

func TestSetMemberStatus_NewRecordDefaults(t *testing.T) {
	p := newTestParty()

	err := p.SetMemberStatus("ash", party.StatusInterested, party.CountUnspecified)
	require.NoError(t, err)

	a, ok := p.Attendee("ash")
	require.True(t, ok)
	require.Equal(t, party.StatusInterested, a.Status)
	require.Equal(t, 1, a.Count)
	require.Equal(t, party.DefaultGroupID, a.GroupID)
}

func TestSetMemberStatus_CountHandling(t *testing.T) {
	p := newTestParty()

	require.NoError(t, p.SetMemberStatus("ash", party.StatusInterested, 4))
	a, _ := p.Attendee("ash")
	require.Equal(t, 4, a.Count)

	// Unspecified preserves the existing count.
	require.NoError(t, p.SetMemberStatus("ash", party.StatusPresent, party.CountUnspecified))
	a, _ = p.Attendee("ash")
	require.Equal(t, 4, a.Count)
	require.Equal(t, party.StatusPresent, a.Status)

	// Counts below one clamp to one.
	require.NoError(t, p.SetMemberStatus("ash", party.StatusPresent, 0))
	a, _ = p.Attendee("ash")
	require.Equal(t, 1, a.Count)
}

func TestSetMemberStatus_NotInterestedRemovesRecord(t *testing.T) {
	p := newTestParty()

	require.NoError(t, p.SetMemberStatus("ash", party.StatusInterested, 3))
	require.NoError(t, p.SetMemberStatus("ash", party.StatusNotInterested, party.CountUnspecified))

	_, ok := p.Attendee("ash")
	require.False(t, ok)
	require.Equal(t, party.StatusNotInterested, p.MemberStatus("ash"))
	require.Equal(t, 0, p.AttendeeCount(party.DefaultGroupID))
}

func TestSetMemberStatus_CompleteIsTerminal(t *testing.T) {
	p := newTestParty()

	require.NoError(t, p.SetMemberStatus("ash", party.StatusComplete, party.CountUnspecified))

	err := p.SetMemberStatus("ash", party.StatusInterested, party.CountUnspecified)
	require.ErrorIs(t, err, party.ErrMemberDone)
	err = p.SetMemberStatus("ash", party.StatusNotInterested, party.CountUnspecified)
	require.ErrorIs(t, err, party.ErrMemberDone)

	// Re-asserting completion is fine.
	require.NoError(t, p.SetMemberStatus("ash", party.StatusComplete, party.CountUnspecified))

	// The explicit reset is the only way back.
	require.NoError(t, p.ResetMemberStatus("ash"))
	require.NoError(t, p.SetMemberStatus("ash", party.StatusInterested, party.CountUnspecified))
}

func TestAttendeeCount_ExcludesCompleteAndOtherGroups(t *testing.T) {
	p := newTestParty()
	g, err := p.CreateGroup("late crew")
	require.NoError(t, err)
	require.Equal(t, "B", g.ID)

	require.NoError(t, p.SetMemberStatus("ash", party.StatusInterested, 2))
	require.NoError(t, p.SetMemberStatus("misty", party.StatusPresent, 3))
	require.NoError(t, p.SetMemberGroup("misty", "B"))
	require.NoError(t, p.SetMemberStatus("brock", party.StatusComplete, 5))

	require.Equal(t, 2, p.AttendeeCount(party.DefaultGroupID))
	require.Equal(t, 3, p.AttendeeCount("B"))
}

func TestCreateGroup_LetterSequenceAndExhaustion(t *testing.T) {
	p := newTestParty()

	for i := 1; i < 26; i++ {
		g, err := p.CreateGroup("")
		require.NoError(t, err)
		require.Equal(t, string(rune('A'+i)), g.ID)
	}

	_, err := p.CreateGroup("overflow")
	require.ErrorIs(t, err, party.ErrTooManyGroups)
}

func TestGroupSummaries_TruncatesLongLabels(t *testing.T) {
	p := newTestParty()
	long := strings.Repeat("á", 200)
	_, err := p.CreateGroup(long)
	require.NoError(t, err)

	summaries := p.GroupSummaries()
	require.Len(t, summaries, 2)
	label := []rune(summaries[1].Label)
	require.Len(t, label, 150)
	require.Equal(t, '…', label[149])
}

func TestSetMemberGroup(t *testing.T) {
	p := newTestParty()

	err := p.SetMemberGroup("ash", "Z")
	require.ErrorIs(t, err, party.ErrUnknownGroup)

	_, err = p.CreateGroup("")
	require.NoError(t, err)

	// Assigning a group without a prior record creates an interested one.
	require.NoError(t, p.SetMemberGroup("ash", "B"))
	a, ok := p.Attendee("ash")
	require.True(t, ok)
	require.Equal(t, party.StatusInterested, a.Status)
	require.Equal(t, "B", a.GroupID)
}

func TestSetMeetingTime_CommitsAndReturnsGroupPeers(t *testing.T) {
	p := newTestParty()
	now := time.Now()

	require.NoError(t, p.SetMemberStatus("misty", party.StatusInterested, 1))
	require.NoError(t, p.SetMemberStatus("brock", party.StatusPresent, 1))
	require.NoError(t, p.SetMemberStatus("jessie", party.StatusComplete, 1))

	target := now.Add(30 * time.Minute)
	peers, err := p.SetMeetingTime("ash", target, now)
	require.NoError(t, err)
	require.Equal(t, []string{"brock", "misty"}, peers)

	meet := p.MeetTime()
	require.True(t, meet.Set)
	require.Equal(t, target, meet.Time)

	summaries := p.GroupSummaries()
	require.NotNil(t, summaries[0].MeetTime)
	require.Equal(t, target, *summaries[0].MeetTime)

	// The actor was recorded as interested.
	require.Equal(t, party.StatusInterested, p.MemberStatus("ash"))
}

func TestSetMeetingTime_OutOfWindow(t *testing.T) {
	p := newTestParty()
	now := time.Now()

	_, err := p.SetMeetingTime("ash", now.Add(12*time.Hour), now)
	require.ErrorIs(t, err, party.ErrTimeOutOfWindow)

	_, err = p.SetMeetingTime("ash", now.Add(-time.Minute), now)
	require.ErrorIs(t, err, party.ErrTimeOutOfWindow)
}

func TestCancelMeetingTime_SetsClearedSentinel(t *testing.T) {
	p := newTestParty()
	now := time.Now()

	_, err := p.SetMeetingTime("ash", now.Add(30*time.Minute), now)
	require.NoError(t, err)

	_, err = p.CancelMeetingTime("ash")
	require.NoError(t, err)

	meet := p.MeetTime()
	require.False(t, meet.Set)
	require.True(t, meet.Cleared)
	require.Nil(t, p.GroupSummaries()[0].MeetTime)
}

func TestSetEndTime_ShrinksMeetWindow(t *testing.T) {
	p := newTestParty()
	now := time.Now()

	require.NoError(t, p.SetEndTime(now.Add(20*time.Minute), now))

	// Meeting times past the end time are rejected.
	_, err := p.SetMeetingTime("ash", now.Add(30*time.Minute), now)
	require.ErrorIs(t, err, party.ErrTimeOutOfWindow)

	_, err = p.SetMeetingTime("ash", now.Add(10*time.Minute), now)
	require.NoError(t, err)

	require.NoError(t, p.ClearEndTime())
	end := p.EndTime()
	require.False(t, end.Set)
	require.True(t, end.Cleared)
}

func TestSetHatchTime(t *testing.T) {
	p := newTestParty()
	now := time.Now()

	require.NoError(t, p.SetHatchTime(now.Add(30*time.Minute), now))
	h := p.HatchTime()
	require.NotNil(t, h)

	err := p.SetHatchTime(now.Add(12*time.Hour), now)
	require.ErrorIs(t, err, party.ErrTimeOutOfWindow)
}

func TestSubjectOverridesDurations(t *testing.T) {
	p := newTestParty()
	now := time.Now()

	// Standard window tops out 105 minutes past creation.
	_, err := p.SetMeetingTime("ash", now.Add(3*time.Hour), now)
	require.ErrorIs(t, err, party.ErrTimeOutOfWindow)

	require.NoError(t, p.SetSubject(&party.Subject{
		Name:       "legendary",
		Incubation: 4 * time.Hour,
	}))

	_, err = p.SetMeetingTime("ash", now.Add(3*time.Hour), now)
	require.NoError(t, err)
}

func TestConcurrentStatusChanges_NoLostUpdates(t *testing.T) {
	p := newTestParty()

	const members = 50
	var wg sync.WaitGroup
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("member-%d", n)
			require.NoError(t, p.SetMemberStatus(id, party.StatusInterested, 2))
		}(i)
	}
	wg.Wait()

	require.Equal(t, members*2, p.AttendeeCount(party.DefaultGroupID))
}

// The live count must always equal the sum of non-complete headcounts in
// the group, whatever sequence of operations produced the state.
func TestAttendeeCount_ConsistentUnderRandomOps(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := newTestParty()

		type record struct {
			status party.Status
			count  int
		}
		model := map[string]record{}
		members := []string{"a", "b", "c", "d", "e"}

		ops := rapid.IntRange(1, 40).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			member := rapid.SampledFrom(members).Draw(t, "member")
			status := party.Status(rapid.IntRange(0, 3).Draw(t, "status"))
			count := rapid.IntRange(-1, 6).Draw(t, "count")

			err := p.SetMemberStatus(member, status, count)

			prev, exists := model[member]
			if exists && prev.status == party.StatusComplete && status != party.StatusComplete {
				require.ErrorIs(t, err, party.ErrMemberDone)
				continue
			}
			require.NoError(t, err)

			if status == party.StatusNotInterested {
				delete(model, member)
				continue
			}
			next := record{status: status, count: 1}
			if exists {
				next.count = prev.count
			}
			if count != party.CountUnspecified {
				next.count = count
				if next.count < 1 {
					next.count = 1
				}
			}
			model[member] = next
		}

		want := 0
		for _, r := range model {
			if r.status != party.StatusComplete {
				want += r.count
			}
		}
		require.Equal(t, want, p.AttendeeCount(party.DefaultGroupID))
	})
}
