package repository

// TxRepos repositorios ligados a una misma transacción.
type TxRepos struct {
	Equipment      EquipmentRepository
	EquipmentTypes EquipmentTypeRepository
	Movements      MovementRepository
	Documents      DocumentRepository
	FollowUps      FollowUpRepository
	Batches        BatchRequestRepository
}
