package dataaccess

const mongoDatabase = "dragons"
