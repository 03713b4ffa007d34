package absence_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personalman/absence-server/absence"
	"github.com/personalman/absence-server/absence/store"
	"github.com/personalman/absence-server/calendar"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	testCompany  = "Example Company"
	testUsername = "max.mustermann"
)

func date(y int, m time.Month, d int) calendar.Date {
	return calendar.NewDate(y, m, d)
}

func employee(entitlement int, week calendar.WorkWeek) absence.Employee {
	return absence.Employee{
		Company:                 testCompany,
		Username:                testUsername,
		LeaveEntitlementPerYear: entitlement,
		WorkingDays:             week,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, emp absence.Employee) (*absence.Service, *store.TxMemory) {
	t.Helper()
	mem := store.NewTxMemory()
	mem.PutEmployee(emp)
	return absence.NewService(mem, mem, discardLogger()), mem
}

func request(cat absence.Category, start, end calendar.Date) absence.Request {
	return absence.Request{
		Company:  testCompany,
		Username: testUsername,
		Start:    start,
		End:      end,
		Category: cat,
	}
}

func window(start, end calendar.Date) absence.Query {
	return absence.Query{Company: testCompany, Username: testUsername, Period: calendar.NewPeriod(start, end)}
}

func book(t *testing.T, svc *absence.Service, cat absence.Category, start, end calendar.Date) bool {
	t.Helper()
	ok, err := svc.Book(context.Background(), request(cat, start, end))
	require.NoError(t, err)
	return ok
}

// =============================================================================
// HOLIDAY
// =============================================================================

func TestBook_Holiday_WithinEntitlement(t *testing.T) {
	// GIVEN: Mon-Fri worker with 5 days entitlement
	// WHEN: Booking Wed 2015-03-18 to Thu 2015-03-19
	// THEN: Accepted, 2 records, 2 days counted

	svc, mem := newTestService(t, employee(5, calendar.MondayToFriday()))
	ctx := context.Background()

	assert.True(t, book(t, svc, absence.Holiday, date(2015, time.March, 18), date(2015, time.March, 19)))
	assert.Equal(t, 2, mem.Len())

	n, err := svc.Count(ctx, window(date(2015, time.March, 18), date(2015, time.March, 19)), absence.Holiday)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBook_Holiday_ExceedingEntitlementWritesNothing(t *testing.T) {
	// GIVEN: 2 of 5 days already booked
	// WHEN: Booking a full week (5 working days)
	// THEN: Rejected and no record of the request is stored

	svc, mem := newTestService(t, employee(5, calendar.MondayToFriday()))
	ctx := context.Background()

	require.True(t, book(t, svc, absence.Holiday, date(2015, time.March, 18), date(2015, time.March, 19)))

	assert.False(t, book(t, svc, absence.Holiday, date(2015, time.March, 23), date(2015, time.March, 29)))
	assert.Equal(t, 2, mem.Len())

	found, err := svc.Find(ctx, window(date(2015, time.March, 23), date(2015, time.March, 29)))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestBook_Holiday_ExactlyEntitlement(t *testing.T) {
	svc, _ := newTestService(t, employee(5, calendar.MondayToFriday()))

	assert.True(t, book(t, svc, absence.Holiday, date(2015, time.March, 23), date(2015, time.March, 29)))
	assert.False(t, book(t, svc, absence.Holiday, date(2015, time.April, 1), date(2015, time.April, 1)))
}

func TestBook_Holiday_WeekendOnlyAcceptedWithoutRecords(t *testing.T) {
	svc, mem := newTestService(t, employee(5, calendar.MondayToFriday()))

	assert.True(t, book(t, svc, absence.Holiday, date(2015, time.March, 28), date(2015, time.March, 29)))
	assert.Zero(t, mem.Len())
}

func TestBook_Holiday_SplitYear_BothHalvesPass(t *testing.T) {
	// GIVEN: Nothing booked
	// WHEN: Booking Wed 2015-12-30 to Mon 2016-01-04
	// THEN: 2 days land in 2015 and 2 in 2016

	svc, _ := newTestService(t, employee(5, calendar.MondayToFriday()))
	ctx := context.Background()

	require.True(t, book(t, svc, absence.Holiday, date(2015, time.December, 30), date(2016, time.January, 4)))

	n2015, err := svc.Count(ctx, absence.YearQuery(testCompany, testUsername, 2015), absence.Holiday)
	require.NoError(t, err)
	n2016, err := svc.Count(ctx, absence.YearQuery(testCompany, testUsername, 2016), absence.Holiday)
	require.NoError(t, err)

	assert.Equal(t, 2, n2015)
	assert.Equal(t, 2, n2016)
}

func TestBook_Holiday_SplitYear_SecondHalfFailsRejectsWhole(t *testing.T) {
	// GIVEN: 4 of 5 days of 2016 already booked
	// WHEN: Booking across the year boundary (2 days per year)
	// THEN: Rejected; nothing lands in 2015 either

	svc, mem := newTestService(t, employee(5, calendar.MondayToFriday()))
	ctx := context.Background()

	require.True(t, book(t, svc, absence.Holiday, date(2016, time.March, 7), date(2016, time.March, 10)))
	before := mem.Len()

	assert.False(t, book(t, svc, absence.Holiday, date(2015, time.December, 30), date(2016, time.January, 4)))
	assert.Equal(t, before, mem.Len())

	n2015, err := svc.Count(ctx, absence.YearQuery(testCompany, testUsername, 2015), absence.Holiday)
	require.NoError(t, err)
	assert.Zero(t, n2015)
}

func TestBook_Holiday_SplitYear_FirstHalfFailsRejectsWhole(t *testing.T) {
	svc, mem := newTestService(t, employee(5, calendar.MondayToFriday()))

	require.True(t, book(t, svc, absence.Holiday, date(2015, time.December, 1), date(2015, time.December, 4)))
	before := mem.Len()

	assert.False(t, book(t, svc, absence.Holiday, date(2015, time.December, 30), date(2016, time.January, 4)))
	assert.Equal(t, before, mem.Len())
}

func TestBook_Holiday_ThreeYearsRejected(t *testing.T) {
	svc, mem := newTestService(t, employee(1000, calendar.MondayToFriday()))

	assert.False(t, book(t, svc, absence.Holiday, date(2015, time.December, 31), date(2017, time.January, 2)))
	assert.Zero(t, mem.Len())
}

// =============================================================================
// TRIP / CONFERENCE
// =============================================================================

func TestBook_Trip_SpanRecordPlusLieuCredits(t *testing.T) {
	// GIVEN: Tue/Wed worker with no entitlement at all
	// WHEN: Booking a trip Mon 2015-04-06 to Thu 2015-04-09
	// THEN: One 4-day Trip record plus lieu credits for Monday and Thursday

	svc, _ := newTestService(t, employee(0, calendar.NewWorkWeek(time.Tuesday, time.Wednesday)))
	ctx := context.Background()

	require.True(t, book(t, svc, absence.Trip, date(2015, time.April, 6), date(2015, time.April, 9)))

	records, err := svc.Find(ctx, window(date(2015, time.April, 6), date(2015, time.April, 9)))
	require.NoError(t, err)
	require.Len(t, records, 3)

	var trips, credits []absence.Record
	for _, r := range records {
		switch r.Category {
		case absence.Trip:
			trips = append(trips, r)
		case absence.DayInLieuRequest:
			credits = append(credits, r)
		}
	}
	require.Len(t, trips, 1)
	assert.Equal(t, date(2015, time.April, 6), trips[0].Start)
	assert.Equal(t, date(2015, time.April, 9), trips[0].End)
	require.Len(t, credits, 2)
	assert.Equal(t, date(2015, time.April, 6), credits[0].Start)
	assert.Equal(t, date(2015, time.April, 9), credits[1].Start)
}

func TestBook_Conference_AlwaysAccepted(t *testing.T) {
	svc, _ := newTestService(t, employee(0, calendar.MondayToFriday()))
	ctx := context.Background()

	require.True(t, book(t, svc, absence.Conference, date(2015, time.May, 1), date(2015, time.May, 3)))

	lieu, err := svc.Count(ctx, absence.YearQuery(testCompany, testUsername, 2015), absence.DayInLieuRequest)
	require.NoError(t, err)
	assert.Equal(t, 2, lieu, "Saturday and Sunday earn lieu days")
}

func TestBook_Trip_DuplicateIsConflict(t *testing.T) {
	svc, mem := newTestService(t, employee(0, calendar.MondayToFriday()))

	require.True(t, book(t, svc, absence.Trip, date(2015, time.April, 6), date(2015, time.April, 9)))
	before := mem.Len()

	ok, err := svc.Book(context.Background(), request(absence.Trip, date(2015, time.April, 6), date(2015, time.April, 9)))
	assert.False(t, ok)
	assert.ErrorIs(t, err, absence.ErrDuplicateAbsence)
	assert.True(t, absence.IsConflict(err))
	assert.Equal(t, before, mem.Len())
}

func TestCount_TripSpanningCenturies(t *testing.T) {
	// GIVEN: A seven-day worker, so a trip earns no lieu credits
	everyDay := calendar.NewWorkWeek(time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday, time.Sunday)
	svc, _ := newTestService(t, employee(0, everyDay))
	start, end := date(1700, time.January, 1), date(2100, time.January, 1)

	// WHEN: One trip covers four hundred years
	require.True(t, book(t, svc, absence.Trip, start, end))

	// THEN: Its single record counts every day of the span
	n, err := svc.Count(context.Background(), window(start, end), absence.Trip)
	require.NoError(t, err)
	assert.Equal(t, 146098, n)
}

// =============================================================================
// DAY IN LIEU
// =============================================================================

func TestBook_DayInLieu_SpendsEarnedBalance(t *testing.T) {
	// GIVEN: A weekend trip earned 2 lieu days
	// WHEN: Taking 2 lieu days, then one more
	// THEN: First accepted, second rejected

	svc, _ := newTestService(t, employee(5, calendar.MondayToFriday()))

	require.True(t, book(t, svc, absence.Trip, date(2015, time.June, 6), date(2015, time.June, 7)))

	assert.True(t, book(t, svc, absence.DayInLieu, date(2015, time.June, 8), date(2015, time.June, 9)))
	assert.False(t, book(t, svc, absence.DayInLieu, date(2015, time.June, 10), date(2015, time.June, 10)))
}

func TestBook_DayInLieu_RecordsEveryDayInRange(t *testing.T) {
	svc, _ := newTestService(t, employee(5, calendar.MondayToFriday()))
	ctx := context.Background()

	// Two weekends of travel earn 4 lieu days.
	require.True(t, book(t, svc, absence.Trip, date(2015, time.June, 6), date(2015, time.June, 7)))
	require.True(t, book(t, svc, absence.Trip, date(2015, time.June, 13), date(2015, time.June, 14)))

	// Fri to Sat spans one non-working day; both are recorded.
	require.True(t, book(t, svc, absence.DayInLieu, date(2015, time.June, 19), date(2015, time.June, 20)))

	taken, err := svc.Count(ctx, absence.YearQuery(testCompany, testUsername, 2015), absence.DayInLieu)
	require.NoError(t, err)
	assert.Equal(t, 2, taken)
}

func TestBook_DayInLieu_AcrossYearsRejected(t *testing.T) {
	svc, mem := newTestService(t, employee(5, calendar.MondayToFriday()))

	require.True(t, book(t, svc, absence.Trip, date(2015, time.June, 6), date(2015, time.June, 7)))
	require.True(t, book(t, svc, absence.Trip, date(2016, time.June, 4), date(2016, time.June, 5)))
	before := mem.Len()

	assert.False(t, book(t, svc, absence.DayInLieu, date(2015, time.December, 31), date(2016, time.January, 1)))
	assert.Equal(t, before, mem.Len())
}

func TestBook_DayInLieu_BalanceIsPerYear(t *testing.T) {
	svc, _ := newTestService(t, employee(5, calendar.MondayToFriday()))

	require.True(t, book(t, svc, absence.Trip, date(2015, time.June, 6), date(2015, time.June, 7)))

	assert.False(t, book(t, svc, absence.DayInLieu, date(2016, time.January, 4), date(2016, time.January, 4)))
}

// =============================================================================
// OTHER CATEGORIES AND REJECTIONS
// =============================================================================

func TestBook_Illness_NoEntitlementCheck(t *testing.T) {
	svc, mem := newTestService(t, employee(0, calendar.MondayToFriday()))

	assert.True(t, book(t, svc, absence.Illness, date(2015, time.March, 23), date(2015, time.March, 29)))
	assert.Equal(t, 5, mem.Len())
	assert.True(t, book(t, svc, absence.FederalHoliday, date(2015, time.December, 25), date(2015, time.December, 25)))
	assert.Equal(t, 6, mem.Len())
}

func TestBook_UnknownCategoryRejected(t *testing.T) {
	svc, mem := newTestService(t, employee(5, calendar.MondayToFriday()))

	cat, ok := absence.ParseCategory("MyHoliday")
	require.False(t, ok)

	assert.False(t, book(t, svc, cat, date(2015, time.March, 18), date(2015, time.March, 19)))
	assert.Zero(t, mem.Len())
}

func TestBook_EndBeforeStartRejected(t *testing.T) {
	svc, mem := newTestService(t, employee(5, calendar.MondayToFriday()))

	assert.False(t, book(t, svc, absence.Illness, date(2015, time.March, 19), date(2015, time.March, 18)))
	assert.Zero(t, mem.Len())
}

func TestBook_EmployeeNotFoundIsHardError(t *testing.T) {
	svc, _ := newTestService(t, employee(5, calendar.MondayToFriday()))

	req := request(absence.Holiday, date(2015, time.March, 18), date(2015, time.March, 19))
	req.Username = "nobody"

	ok, err := svc.Book(context.Background(), req)
	assert.False(t, ok)
	assert.True(t, absence.IsNotFound(err))

	var nf *absence.EmployeeNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nobody", nf.Username)
}

// failingRepo lets reads through and fails every insert.
type failingRepo struct {
	*store.Memory
}

var errDiskFull = errors.New("disk full")

func (f failingRepo) Insert(context.Context, []absence.Record) error { return errDiskFull }

func TestBook_RepositoryFailurePropagates(t *testing.T) {
	mem := store.NewMemory()
	mem.PutEmployee(employee(5, calendar.MondayToFriday()))
	svc := absence.NewService(failingRepo{mem}, mem, discardLogger())

	ok, err := svc.Book(context.Background(), request(absence.Holiday, date(2015, time.March, 18), date(2015, time.March, 19)))

	assert.False(t, ok)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Zero(t, mem.Len())
}

// =============================================================================
// FIND / COUNT / DELETE
// =============================================================================

func TestCount_SumsEveryMatchingRecord(t *testing.T) {
	// Two separate one-day illness records must count as 2, not as the span
	// of the last match only.
	svc, _ := newTestService(t, employee(5, calendar.MondayToFriday()))
	ctx := context.Background()

	require.True(t, book(t, svc, absence.Illness, date(2015, time.May, 4), date(2015, time.May, 4)))
	require.True(t, book(t, svc, absence.Illness, date(2015, time.May, 6), date(2015, time.May, 6)))

	n, err := svc.Count(ctx, window(date(2015, time.May, 1), date(2015, time.May, 31)), absence.Illness)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCount_AfterBookReturnsBookedDays(t *testing.T) {
	svc, _ := newTestService(t, employee(25, calendar.MondayToFriday()))
	ctx := context.Background()
	start, end := date(2015, time.August, 3), date(2015, time.August, 14)

	require.True(t, book(t, svc, absence.Holiday, start, end))

	n, err := svc.Count(ctx, window(start, end), absence.Holiday)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestCount_UnknownCategory(t *testing.T) {
	svc, _ := newTestService(t, employee(5, calendar.MondayToFriday()))

	_, err := svc.Count(context.Background(), absence.YearQuery(testCompany, "", 2015), absence.CategoryNone)
	assert.ErrorIs(t, err, absence.ErrUnknownCategory)
	assert.True(t, absence.IsClientError(err))
}

func TestFind_CompanyWideAndValidation(t *testing.T) {
	mem := store.NewTxMemory()
	alice := employee(5, calendar.MondayToFriday())
	bob := alice
	bob.Username = "bob"
	mem.PutEmployee(alice)
	mem.PutEmployee(bob)
	svc := absence.NewService(mem, mem, discardLogger())
	ctx := context.Background()

	require.True(t, book(t, svc, absence.Illness, date(2015, time.May, 4), date(2015, time.May, 4)))
	bobReq := request(absence.Illness, date(2015, time.May, 5), date(2015, time.May, 5))
	bobReq.Username = "bob"
	ok, err := svc.Book(ctx, bobReq)
	require.NoError(t, err)
	require.True(t, ok)

	all, err := svc.Find(ctx, absence.YearQuery(testCompany, "", 2015))
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, testUsername, all[0].Username, "ordered by start date")

	_, err = svc.Find(ctx, absence.YearQuery("", "", 2015))
	assert.ErrorIs(t, err, absence.ErrCompanyRequired)

	_, err = svc.Find(ctx, window(date(2015, time.May, 5), date(2015, time.May, 4)))
	assert.ErrorIs(t, err, absence.ErrInvalidPeriod)
}

func TestDelete_ThenFindReturnsEmpty(t *testing.T) {
	svc, mem := newTestService(t, employee(0, calendar.NewWorkWeek(time.Tuesday, time.Wednesday)))
	ctx := context.Background()
	q := window(date(2015, time.April, 1), date(2015, time.April, 30))

	require.True(t, book(t, svc, absence.Trip, date(2015, time.April, 6), date(2015, time.April, 9)))
	require.True(t, book(t, svc, absence.Illness, date(2015, time.May, 5), date(2015, time.May, 5)))

	n, err := svc.Delete(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	found, err := svc.Find(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, 1, mem.Len(), "records outside the window survive")
}

func TestDelete_NothingMatched(t *testing.T) {
	svc, _ := newTestService(t, employee(5, calendar.MondayToFriday()))

	n, err := svc.Delete(context.Background(), absence.YearQuery(testCompany, testUsername, 2015))
	require.NoError(t, err)
	assert.Zero(t, n)
}
