// Package mongo implements the store repositories on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kozaktomas/argus/internal/facematch"
	"github.com/kozaktomas/argus/internal/store"
)

const (
	employeesCollection  = "employees"
	attendanceCollection = "attendance"
)

// Store implements store.EmployeeStore and store.PunchStore on a MongoDB
// database. The two repositories are separate types because their
// interfaces both declare Insert and List with different signatures.
type Store struct {
	client    *mongo.Client
	Employees *EmployeeStore
	Punches   *PunchStore
}

// EmployeeStore implements store.EmployeeStore on the employees collection.
type EmployeeStore struct {
	employees *mongo.Collection
}

// PunchStore implements store.PunchStore on the attendance collection.
type PunchStore struct {
	attendance *mongo.Collection
}

// Connect opens a MongoDB connection, verifies it and ensures the indexes
// the repositories rely on.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongodb URI is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:    client,
		Employees: &EmployeeStore{employees: db.Collection(employeesCollection)},
		Punches:   &PunchStore{attendance: db.Collection(attendanceCollection)},
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("closing mongodb connection: %w", err)
	}
	return nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.Employees.employees.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "emp_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating employee index: %w", err)
	}

	// One open punch per employee and day. The partial unique index
	// closes the race between two concurrent punch-ins; InsertOpen also
	// checks for open records in other statuses, which a regularized
	// overlay without a punch-out can produce.
	_, err = s.Punches.attendance.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "emp_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{Key: "status", Value: string(store.StatusPresent)}}),
	})
	if err != nil {
		return fmt.Errorf("creating open punch index: %w", err)
	}

	_, err = s.Punches.attendance.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "emp_id", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("creating attendance index: %w", err)
	}
	return nil
}

// notHistorical excludes superseded records from current queries.
var notHistorical = bson.D{{Key: "$ne", Value: string(store.StatusHistorical)}}

// --- EmployeeStore ---

func (s *EmployeeStore) Get(ctx context.Context, employeeID string) (*store.Employee, error) {
	var emp store.Employee
	err := s.employees.FindOne(ctx, bson.D{{Key: "emp_id", Value: employeeID}}).Decode(&emp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding employee %s: %w", employeeID, err)
	}
	return &emp, nil
}

// List fetches all employees and filters by the search term in memory.
// The roster is small and diacritic folding has no server-side
// equivalent in a collation-free collection.
func (s *EmployeeStore) List(ctx context.Context, search string) ([]store.Employee, error) {
	cursor, err := s.employees.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "emp_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	var all []store.Employee
	if err := cursor.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("decoding employees: %w", err)
	}
	if search == "" {
		return all, nil
	}

	needle := facematch.NormalizeName(search)
	matched := make([]store.Employee, 0, len(all))
	for _, emp := range all {
		if emp.EmployeeID == search || (needle != "" && strings.Contains(facematch.NormalizeName(emp.FullName), needle)) {
			matched = append(matched, emp)
		}
	}
	return matched, nil
}

func (s *EmployeeStore) ListEnrolled(ctx context.Context) ([]store.Employee, error) {
	filter := bson.D{{Key: "face_descriptor", Value: bson.D{
		{Key: "$exists", Value: true},
		{Key: "$ne", Value: bson.A{}},
	}}}
	cursor, err := s.employees.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing enrolled employees: %w", err)
	}
	var enrolled []store.Employee
	if err := cursor.All(ctx, &enrolled); err != nil {
		return nil, fmt.Errorf("decoding enrolled employees: %w", err)
	}
	return enrolled, nil
}

func (s *EmployeeStore) Insert(ctx context.Context, emp store.Employee) error {
	_, err := s.employees.InsertOne(ctx, emp)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicateEmployee
	}
	if err != nil {
		return fmt.Errorf("inserting employee %s: %w", emp.EmployeeID, err)
	}
	return nil
}

func (s *EmployeeStore) UpdateDescriptor(ctx context.Context, employeeID string, descriptor []float64, imagePath string) error {
	res, err := s.employees.UpdateOne(ctx,
		bson.D{{Key: "emp_id", Value: employeeID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "face_descriptor", Value: descriptor},
			{Key: "image_path", Value: imagePath},
		}}},
	)
	if err != nil {
		return fmt.Errorf("updating descriptor for %s: %w", employeeID, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *EmployeeStore) Delete(ctx context.Context, employeeID string) error {
	res, err := s.employees.DeleteOne(ctx, bson.D{{Key: "emp_id", Value: employeeID}})
	if err != nil {
		return fmt.Errorf("deleting employee %s: %w", employeeID, err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *EmployeeStore) Count(ctx context.Context) (int, error) {
	n, err := s.employees.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("counting employees: %w", err)
	}
	return int(n), nil
}

// --- PunchStore ---

func (s *PunchStore) FindOpen(ctx context.Context, employeeID, date string) (*store.PunchRecord, error) {
	filter := bson.D{
		{Key: "emp_id", Value: employeeID},
		{Key: "date", Value: date},
		{Key: "punch_out", Value: nil},
		{Key: "status", Value: notHistorical},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "punch_in", Value: -1}})

	var rec store.PunchRecord
	err := s.attendance.FindOne(ctx, filter, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding open punch: %w", err)
	}
	return &rec, nil
}

func (s *PunchStore) InsertOpen(ctx context.Context, rec store.PunchRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Status = store.StatusPresent

	// A regularized overlay without a punch-out is an open record too,
	// and the partial index only covers Present ones. Check for any
	// current open record first; the index stays as the backstop for
	// concurrent punch-ins.
	openFilter := bson.D{
		{Key: "emp_id", Value: rec.EmployeeID},
		{Key: "date", Value: rec.Date},
		{Key: "punch_out", Value: nil},
		{Key: "status", Value: notHistorical},
	}
	err := s.attendance.FindOne(ctx, openFilter).Err()
	if err == nil {
		return "", store.ErrOpenPunchExists
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("checking for open punch: %w", err)
	}

	_, err = s.attendance.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return "", store.ErrOpenPunchExists
	}
	if err != nil {
		return "", fmt.Errorf("inserting open punch: %w", err)
	}
	return rec.ID, nil
}

func (s *PunchStore) ClosePunch(ctx context.Context, id string, out time.Time, lat, lon *float64, address string) error {
	set := bson.D{
		{Key: "punch_out", Value: out},
		{Key: "status", Value: string(store.StatusCompleted)},
	}
	if lat != nil {
		set = append(set, bson.E{Key: "punch_out_latitude", Value: *lat})
	}
	if lon != nil {
		set = append(set, bson.E{Key: "punch_out_longitude", Value: *lon})
	}
	if address != "" {
		set = append(set, bson.E{Key: "punch_out_address", Value: address})
	}

	res, err := s.attendance.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("closing punch %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PunchStore) Insert(ctx context.Context, rec store.PunchRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.attendance.InsertOne(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("inserting punch record: %w", err)
	}
	return rec.ID, nil
}

func (s *PunchStore) FindCurrentByDay(ctx context.Context, employeeID, date string) ([]store.PunchRecord, error) {
	filter := bson.D{
		{Key: "emp_id", Value: employeeID},
		{Key: "date", Value: date},
		{Key: "status", Value: notHistorical},
	}
	cursor, err := s.attendance.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "punch_in", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("finding day records: %w", err)
	}
	var records []store.PunchRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decoding day records: %w", err)
	}
	return records, nil
}

func (s *PunchStore) FindByEmployee(ctx context.Context, employeeID string) ([]store.PunchRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "punch_in", Value: -1}})
	cursor, err := s.attendance.Find(ctx, bson.D{{Key: "emp_id", Value: employeeID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("finding employee records: %w", err)
	}
	var records []store.PunchRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decoding employee records: %w", err)
	}
	return records, nil
}

func (s *PunchStore) MarkHistorical(ctx context.Context, employeeID, date string) (int, error) {
	res, err := s.attendance.UpdateMany(ctx,
		bson.D{
			{Key: "emp_id", Value: employeeID},
			{Key: "date", Value: date},
			{Key: "status", Value: notHistorical},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(store.StatusHistorical)}}}},
	)
	if err != nil {
		return 0, fmt.Errorf("marking records historical: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func (s *PunchStore) DeleteByEmployee(ctx context.Context, employeeID string) error {
	if _, err := s.attendance.DeleteMany(ctx, bson.D{{Key: "emp_id", Value: employeeID}}); err != nil {
		return fmt.Errorf("deleting employee records: %w", err)
	}
	return nil
}

func (s *PunchStore) List(ctx context.Context, filter store.ListFilter) ([]store.PunchRecord, int, error) {
	// Historical records never surface here, even when the status filter
	// names them; they only exist as regularization backing data.
	var query bson.D
	if filter.Status != "" {
		query = append(query, bson.E{Key: "status", Value: bson.D{
			{Key: "$eq", Value: string(filter.Status)},
			{Key: "$ne", Value: string(store.StatusHistorical)},
		}})
	} else {
		query = append(query, bson.E{Key: "status", Value: notHistorical})
	}
	if filter.EmployeeID != "" {
		query = append(query, bson.E{Key: "emp_id", Value: filter.EmployeeID})
	}
	if dateRange := rangeFilter(filter.StartDate, filter.EndDate); len(dateRange) > 0 {
		query = append(query, bson.E{Key: "date", Value: dateRange})
	}

	total, err := s.attendance.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("counting punch records: %w", err)
	}

	sortKey := "date"
	switch filter.SortBy {
	case "punch_in", "punch_out":
		sortKey = filter.SortBy
	}
	direction := -1
	if filter.SortAsc {
		direction = 1
	}

	opts := options.Find().SetSort(bson.D{{Key: sortKey, Value: direction}, {Key: "punch_in", Value: direction}})
	if skip, limit := pageWindow(filter.Page, filter.PerPage); limit > 0 {
		opts = opts.SetSkip(skip).SetLimit(limit)
	}

	cursor, err := s.attendance.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("listing punch records: %w", err)
	}
	var records []store.PunchRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, fmt.Errorf("decoding punch records: %w", err)
	}
	return records, int(total), nil
}

func (s *PunchStore) Regularizations(ctx context.Context, filter store.RegularizationFilter) ([]store.RegularizationEntry, int, error) {
	match := bson.D{{Key: "status", Value: string(store.StatusRegularized)}}
	if filter.EmployeeID != "" {
		match = append(match, bson.E{Key: "emp_id", Value: filter.EmployeeID})
	}
	if dateRange := rangeFilter(filter.StartDate, filter.EndDate); len(dateRange) > 0 {
		match = append(match, bson.E{Key: "date", Value: dateRange})
	}

	total, err := s.attendance.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, fmt.Errorf("counting regularizations: %w", err)
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "regularized_at", Value: -1}}}},
	}
	if skip, limit := pageWindow(filter.Page, filter.PerPage); limit > 0 {
		pipeline = append(pipeline,
			bson.D{{Key: "$skip", Value: skip}},
			bson.D{{Key: "$limit", Value: limit}},
		)
	}
	// Join each regularized record with the earliest historical record of
	// the same employee and day to recover the original punch times.
	pipeline = append(pipeline, bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: attendanceCollection},
		{Key: "let", Value: bson.D{{Key: "emp", Value: "$emp_id"}, {Key: "day", Value: "$date"}}},
		{Key: "pipeline", Value: mongo.Pipeline{
			bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$emp_id", "$$emp"}}},
				bson.D{{Key: "$eq", Value: bson.A{"$date", "$$day"}}},
				bson.D{{Key: "$eq", Value: bson.A{"$status", string(store.StatusHistorical)}}},
			}}}}}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "punch_in", Value: 1}}}},
			bson.D{{Key: "$limit", Value: 1}},
		}},
		{Key: "as", Value: "originals"},
	}}})

	cursor, err := s.attendance.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("aggregating regularizations: %w", err)
	}

	var rows []struct {
		store.PunchRecord `bson:",inline"`
		Originals         []store.PunchRecord `bson:"originals"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, 0, fmt.Errorf("decoding regularizations: %w", err)
	}

	entries := make([]store.RegularizationEntry, 0, len(rows))
	for _, row := range rows {
		entry := store.RegularizationEntry{Record: row.PunchRecord}
		if len(row.Originals) > 0 {
			entry.OriginalPunchIn = row.Originals[0].PunchIn
			entry.OriginalPunchOut = row.Originals[0].PunchOut
		}
		entries = append(entries, entry)
	}
	return entries, int(total), nil
}

func (s *PunchStore) CountByStatus(ctx context.Context, status store.Status) (int, error) {
	n, err := s.attendance.CountDocuments(ctx, bson.D{{Key: "status", Value: string(status)}})
	if err != nil {
		return 0, fmt.Errorf("counting %s records: %w", status, err)
	}
	return int(n), nil
}

func (s *PunchStore) FirstPunches(ctx context.Context, date string) ([]store.FirstPunch, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "date", Value: date},
			{Key: "status", Value: notHistorical},
			{Key: "punch_in", Value: bson.D{{Key: "$ne", Value: nil}}},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$emp_id"},
			{Key: "punch_in", Value: bson.D{{Key: "$min", Value: "$punch_in"}}},
		}}},
	}

	cursor, err := s.attendance.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregating first punches: %w", err)
	}

	var rows []struct {
		EmployeeID string    `bson:"_id"`
		PunchIn    time.Time `bson:"punch_in"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decoding first punches: %w", err)
	}

	firsts := make([]store.FirstPunch, 0, len(rows))
	for _, row := range rows {
		firsts = append(firsts, store.FirstPunch{EmployeeID: row.EmployeeID, PunchIn: row.PunchIn})
	}
	return firsts, nil
}

func (s *PunchStore) FindMissingAddress(ctx context.Context) ([]store.PunchRecord, error) {
	filter := bson.D{
		{Key: "latitude", Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}},
		{Key: "longitude", Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "address", Value: ""}},
			bson.D{{Key: "address", Value: bson.D{{Key: "$exists", Value: false}}}},
		}},
	}
	cursor, err := s.attendance.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("finding records without address: %w", err)
	}
	var records []store.PunchRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decoding records without address: %w", err)
	}
	return records, nil
}

func (s *PunchStore) UpdateAddress(ctx context.Context, id string, address string) error {
	res, err := s.attendance.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "address", Value: address}}}},
	)
	if err != nil {
		return fmt.Errorf("updating address on %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func rangeFilter(start, end string) bson.D {
	var r bson.D
	if start != "" {
		r = append(r, bson.E{Key: "$gte", Value: start})
	}
	if end != "" {
		r = append(r, bson.E{Key: "$lte", Value: end})
	}
	return r
}

func pageWindow(page, perPage int) (skip, limit int64) {
	if perPage <= 0 {
		return 0, 0
	}
	if page < 1 {
		page = 1
	}
	return int64(page-1) * int64(perPage), int64(perPage)
}
