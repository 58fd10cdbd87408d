package mocks

//go:generate mockgen -destination=./mock_venue.go -package=mocks github.com/rxtech-lab/argo-autotrade/internal/trading/venue Venue
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/rxtech-lab/argo-autotrade/internal/annotation Store
//go:generate mockgen -destination=./mock_submitter.go -package=mocks github.com/rxtech-lab/argo-autotrade/internal/gateway Submitter
